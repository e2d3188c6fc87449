package jsonformat

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"context"
	"errors"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/illuscio-dev/odatareader-go/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"testing"
)

func newInfo(body string) *formats.MessageInfo {
	readerSettings := settings.Default()
	readerSettings.BaseURI = "https://example.org/service/"
	return &formats.MessageInfo{
		IsResponse: true,
		Model:      edm.CoreModel(),
		Settings:   readerSettings,
		Stream:     strings.NewReader(body),
	}
}

func detect(test *testing.T, body string) []payload.Kind {
	kinds, err := New().DetectPayloadKinds(
		context.Background(), newInfo(body), payload.AllKinds,
	)
	require.NoError(test, err)
	return kinds
}

func newContext(test *testing.T, info *formats.MessageInfo) formats.InputContext {
	inputContext, err := New().CreateInputContext(context.Background(), info)
	require.NoError(test, err)
	return inputContext
}

func readAll(test *testing.T, reader formats.ItemReader) []interface{} {
	var items []interface{}
	for {
		item, err := reader.Read(context.Background())
		if err == io.EOF {
			return items
		}
		require.NoError(test, err)
		items = append(items, item)
	}
}

func TestDetectFromContextURL(test *testing.T) {
	assert := assert.New(test)

	cases := map[string][]payload.Kind{
		"$metadata":                        {payload.ServiceDocument},
		"$metadata#Customers":              {payload.ResourceSet},
		"$metadata#Customers/$entity":      {payload.Resource},
		"$metadata#Customers/$delta":       {payload.Delta},
		"$metadata#Collection($ref)":       {payload.EntityReferenceLinks},
		"$metadata#$ref":                   {payload.EntityReferenceLink},
		"$metadata#Collection(Edm.String)": {payload.Collection},
		"$metadata#Edm.String":             {payload.Property},
		"$metadata#NS.Address":             {payload.Property},
		"$metadata#Customers(1)/Orders":    {payload.ResourceSet, payload.Property},
	}
	for contextURL, expected := range cases {
		body := `{"@odata.context":"https://example.org/service/` + contextURL + `"}`
		assert.Equal(expected, detect(test, body), contextURL)
	}

	assert.Nil(detect(test, `{"@context":"https://example.org/service/other"}`))
}

func TestDetectFromShape(test *testing.T) {
	assert := assert.New(test)

	assert.Equal([]payload.Kind{payload.Error}, detect(test, `{"error":{"code":"1"}}`))
	assert.Equal(
		[]payload.Kind{payload.Collection},
		detect(test, `{"value":[1,2,3]}`),
	)
	assert.Equal(
		[]payload.Kind{payload.ResourceSet, payload.Collection},
		detect(test, `{"value":[{"Name":"x"}]}`),
	)
	assert.Equal(
		[]payload.Kind{payload.EntityReferenceLinks},
		detect(test, `{"value":[{"@odata.id":"Customers(1)"}]}`),
	)
	assert.Equal(
		[]payload.Kind{payload.ServiceDocument},
		detect(test, `{"value":[{"name":"Customers","url":"Customers"}]}`),
	)
	assert.Equal(
		[]payload.Kind{payload.ResourceSet, payload.EntityReferenceLinks, payload.Collection},
		detect(test, `{"value":[]}`),
	)
	assert.Equal([]payload.Kind{payload.Property}, detect(test, `{"value":"text"}`))
	assert.Equal(
		[]payload.Kind{payload.EntityReferenceLink, payload.Resource},
		detect(test, `{"@id":"Customers(1)"}`),
	)
	assert.Equal(
		[]payload.Kind{payload.Resource, payload.Parameter},
		detect(test, `{"Name":"x","Age":4}`),
	)
}

func TestDetectFiltersAndIgnoresNonJSON(test *testing.T) {
	assert := assert.New(test)

	kinds, err := New().DetectPayloadKinds(
		context.Background(),
		newInfo(`{"Name":"x"}`),
		[]payload.Kind{payload.Parameter},
	)
	assert.NoError(err)
	assert.Equal([]payload.Kind{payload.Parameter}, kinds)

	assert.Nil(detect(test, `<xml/>`))
	assert.Nil(detect(test, `[1,2]`))
}

func TestResourceReader(test *testing.T) {
	assert := assert.New(test)

	info := newInfo(`{
		"@odata.context":"$metadata#Customers/$entity",
		"@odata.id":"Customers(1)",
		"@odata.etag":"W/\"1\"",
		"@display.color":"red",
		"@core.note":"kept",
		"Name":"Ada",
		"Name@core.note":"dropped",
		"Age":36
	}`)
	info.Settings.AnnotationFilter = "*,-display.*"

	reader, err := newContext(test, info).CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{},
	)
	require.NoError(test, err)

	items := readAll(test, reader)
	require.Len(test, items, 1)
	resource := items[0].(*payload.ResourceValue)

	assert.Equal("https://example.org/service/Customers(1)", resource.ID)
	assert.Equal(`W/"1"`, resource.ETag)
	assert.Equal(map[string]interface{}{"Name": "Ada", "Age": int64(36)}, resource.Properties)
	assert.Equal(map[string]interface{}{"core.note": "kept"}, resource.Annotations)
}

func TestResourceTypeChecks(test *testing.T) {
	assert := assert.New(test)

	model := edm.NewModel()
	person := model.AddType(&edm.StructuredType{Namespace: "NS", Name: "Person", IsEntity: true})
	model.AddType(&edm.StructuredType{
		Namespace: "NS", Name: "Employee", IsEntity: true, BaseType: person,
	})
	model.AddType(&edm.StructuredType{Namespace: "NS", Name: "Order", IsEntity: true})

	read := func(body string) (*payload.ResourceValue, error) {
		info := newInfo(body)
		info.Model = model
		reader, err := newContext(test, info).CreateReader(
			context.Background(), payload.Resource,
			formats.ReadOptions{ExpectedType: person},
		)
		if err != nil {
			return nil, err
		}
		item, err := reader.Read(context.Background())
		if err != nil {
			return nil, err
		}
		return item.(*payload.ResourceValue), nil
	}

	resource, err := read(`{"@odata.type":"#NS.Employee"}`)
	assert.NoError(err)
	assert.Equal("NS.Employee", resource.TypeName)

	resource, err = read(`{"Name":"x"}`)
	assert.NoError(err)
	assert.Equal("NS.Person", resource.TypeName)

	_, err = read(`{"@odata.type":"#NS.Order"}`)
	assert.True(errors.Is(err, odataerrors.UnexpectedPayload))
}

func TestCustomTypeResolver(test *testing.T) {
	model := edm.NewModel()
	person := model.AddType(&edm.StructuredType{Namespace: "NS", Name: "Person", IsEntity: true})

	info := newInfo(`{"@odata.type":"#Legacy.Person"}`)
	info.Model = model
	info.Settings.ClientCustomTypeResolver = func(expected edm.Type, name string) edm.Type {
		if name == "Legacy.Person" {
			return person
		}
		return nil
	}

	reader, err := newContext(test, info).CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{ExpectedType: person},
	)
	require.NoError(test, err)
	items := readAll(test, reader)
	assert.Equal(test, "Legacy.Person", items[0].(*payload.ResourceValue).TypeName)
}

func TestResourceSetReader(test *testing.T) {
	assert := assert.New(test)

	info := newInfo(`{
		"@odata.context":"$metadata#Customers",
		"@odata.count":2,
		"@odata.nextLink":"Customers?$skip=2",
		"value":[{"Name":"a"},{"Name":"b"}]
	}`)
	reader, err := newContext(test, info).CreateReader(
		context.Background(), payload.ResourceSet, formats.ReadOptions{},
	)
	require.NoError(test, err)

	items := readAll(test, reader)
	require.Len(test, items, 3)

	set := items[0].(*payload.ResourceSetInfo)
	assert.Equal("$metadata#Customers", set.Context)
	assert.Equal(int64(2), *set.Count)
	assert.Equal("https://example.org/service/Customers?$skip=2", set.NextLink)
	assert.Equal("", set.DeltaLink)
	assert.Equal("b", items[2].(*payload.ResourceValue).Properties["Name"])
}

func TestDeltaReader(test *testing.T) {
	assert := assert.New(test)

	info := newInfo(`{
		"@context":"$metadata#Customers/$delta",
		"@deltaLink":"Customers?$deltatoken=8",
		"value":[
			{"@id":"Customers(1)","Name":"a"},
			{"@id":"Customers(2)","@removed":{"reason":"deleted"}}
		]
	}`)
	reader, err := newContext(test, info).CreateReader(
		context.Background(), payload.Delta, formats.ReadOptions{},
	)
	require.NoError(test, err)

	items := readAll(test, reader)
	require.Len(test, items, 3)
	assert.Equal(
		"https://example.org/service/Customers?$deltatoken=8",
		items[0].(*payload.ResourceSetInfo).DeltaLink,
	)
	assert.Equal(
		&payload.DeletedResource{
			ID:     "https://example.org/service/Customers(2)",
			Reason: "deleted",
		},
		items[2],
	)
}

func TestCollectionAndParameterReaders(test *testing.T) {
	assert := assert.New(test)

	reader, err := newContext(test, newInfo(`{"value":["a","b"]}`)).CreateReader(
		context.Background(), payload.Collection, formats.ReadOptions{},
	)
	require.NoError(test, err)
	items := readAll(test, reader)
	assert.Equal([]interface{}{&payload.CollectionStart{}, "a", "b"}, items)

	reader, err = newContext(test, newInfo(`{"b":2,"a":"x"}`)).CreateReader(
		context.Background(), payload.Parameter, formats.ReadOptions{},
	)
	require.NoError(test, err)
	items = readAll(test, reader)
	assert.Equal(
		[]interface{}{
			&payload.ParameterValue{Name: "a", Value: "x"},
			&payload.ParameterValue{Name: "b", Value: int64(2)},
		},
		items,
	)
}

func TestReadError(test *testing.T) {
	assert := assert.New(test)

	value, err := newContext(test, newInfo(`{"error":{
		"code":"400","message":"bad","target":"Name",
		"details":[{"code":"d1","message":"detail"}],
		"innererror":{"trace":"x"}
	}}`)).ReadValue(context.Background(), payload.Error, formats.ReadOptions{})
	require.NoError(test, err)

	assert.Equal(
		&payload.ErrorPayload{
			Code:       "400",
			Message:    "bad",
			Target:     "Name",
			Details:    []payload.ErrorDetail{{Code: "d1", Message: "detail"}},
			InnerError: map[string]interface{}{"trace": "x"},
		},
		value,
	)

	_, err = newContext(test, newInfo(`{"oops":1}`)).ReadValue(
		context.Background(), payload.Error, formats.ReadOptions{},
	)
	assert.True(errors.Is(err, odataerrors.MalformedPayload))
}

func TestReadServiceDocument(test *testing.T) {
	assert := assert.New(test)

	value, err := newContext(test, newInfo(`{"@odata.context":"$metadata","value":[
		{"name":"Customers","url":"Customers"},
		{"name":"Me","kind":"Singleton","url":"Me"},
		{"name":"Top","kind":"FunctionImport","url":"Top"}
	]}`)).ReadValue(context.Background(), payload.ServiceDocument, formats.ReadOptions{})
	require.NoError(test, err)

	document := value.(*payload.ServiceDocumentValue)
	assert.Equal("$metadata", document.Context)
	require.Len(test, document.EntitySets, 1)
	assert.Equal("https://example.org/service/Customers", document.EntitySets[0].URL)
	assert.Equal("Me", document.Singletons[0].Name)
	assert.Equal("Top", document.Functions[0].Name)
}

func TestReadProperty(test *testing.T) {
	assert := assert.New(test)

	value, err := newContext(test, newInfo(
		`{"@odata.context":"$metadata#Customers(1)/Name","value":"Ada"}`,
	)).ReadValue(context.Background(), payload.Property, formats.ReadOptions{})
	require.NoError(test, err)
	assert.Equal(&payload.PropertyValue{Name: "Name", Value: "Ada"}, value)

	value, err = newContext(test, newInfo(
		`{"@odata.type":"#NS.Address","City":"Oslo"}`,
	)).ReadValue(
		context.Background(), payload.Property, formats.ReadOptions{Property: "Address"},
	)
	require.NoError(test, err)
	assert.Equal(
		&payload.PropertyValue{
			Name:     "Address",
			TypeName: "NS.Address",
			Value:    map[string]interface{}{"City": "Oslo"},
		},
		value,
	)
}

func TestReadReferenceLinks(test *testing.T) {
	assert := assert.New(test)

	value, err := newContext(test, newInfo(`{"@odata.id":"Orders(3)"}`)).ReadValue(
		context.Background(), payload.EntityReferenceLink, formats.ReadOptions{},
	)
	require.NoError(test, err)
	assert.Equal(
		&payload.ReferenceLink{URL: "https://example.org/service/Orders(3)"},
		value,
	)

	value, err = newContext(test, newInfo(
		`{"@odata.count":1,"value":[{"@odata.id":"http://x/Orders(1)"}]}`,
	)).ReadValue(context.Background(), payload.EntityReferenceLinks, formats.ReadOptions{})
	require.NoError(test, err)
	links := value.(*payload.ReferenceLinks)
	assert.Equal(int64(1), *links.Count)
	assert.Equal([]payload.ReferenceLink{{URL: "http://x/Orders(1)"}}, links.Links)
}

func TestUnsupportedKinds(test *testing.T) {
	assert := assert.New(test)

	inputContext := newContext(test, newInfo(`{}`))
	_, err := inputContext.CreateReader(context.Background(), payload.Batch, formats.ReadOptions{})
	assert.True(errors.Is(err, odataerrors.UnsupportedPayloadKind))
	_, err = inputContext.ReadValue(context.Background(), payload.Value, formats.ReadOptions{})
	assert.True(errors.Is(err, odataerrors.UnsupportedPayloadKind))
}

func TestMalformedAndQuota(test *testing.T) {
	assert := assert.New(test)

	_, err := newContext(test, newInfo(`{"Name":`)).CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{},
	)
	assert.True(errors.Is(err, odataerrors.MalformedPayload))

	_, err = newContext(test, newInfo(`[1]`)).CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{},
	)
	assert.True(errors.Is(err, odataerrors.MalformedPayload))

	deep := newInfo(`{"a":{"b":{"c":{}}}}`)
	deep.Settings.Quotas.MaxNestingDepth = 2
	_, err = newContext(test, deep).CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{},
	)
	assert.True(errors.Is(err, odataerrors.NestingDepthExceeded))
}

func TestClosedContext(test *testing.T) {
	inputContext := newContext(test, newInfo(`{}`))
	assert.NoError(test, inputContext.Close())

	_, err := inputContext.CreateReader(
		context.Background(), payload.Resource, formats.ReadOptions{},
	)
	assert.Error(test, err)
}
