package metadataformat

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"context"
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"strings"
	"testing"
)

const csdlXML = `<?xml version="1.0" encoding="utf-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="Sales" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Customer">
        <Key><PropertyRef Name="ID"/></Key>
        <Property Name="ID" Type="Edm.String" Nullable="false"/>
      </EntityType>
      <EntityContainer Name="Container">
        <EntitySet Name="Customers" EntityType="Sales.Customer"/>
      </EntityContainer>
    </Schema>
    <Schema Namespace="Sales.Vocabulary" xmlns="http://docs.oasis-open.org/odata/ns/edm"/>
  </edmx:DataServices>
</edmx:Edmx>`

const csdlJSON = `{
  "$Version": "4.01",
  "$EntityContainer": "Sales.Container",
  "Sales": {
    "Customer": {"$Kind": "EntityType", "$Key": ["ID"], "ID": {}},
    "Container": {"$Kind": "EntityContainer", "Customers": {"$Collection": true}}
  },
  "Audit": {}
}`

func newInfo(body string, contentType string) *formats.MessageInfo {
	return &formats.MessageInfo{
		IsResponse: true,
		MediaType:  mimetype.MustParse(contentType),
		Stream:     strings.NewReader(body),
	}
}

func read(test *testing.T, info *formats.MessageInfo) (interface{}, error) {
	inputContext, err := New().CreateInputContext(context.Background(), info)
	require.NoError(test, err)
	defer inputContext.Close()

	return inputContext.ReadValue(
		context.Background(), payload.MetadataDocument, formats.ReadOptions{},
	)
}

func TestDetect(test *testing.T) {
	testCases := []struct {
		name        string
		body        string
		contentType string
		expected    []payload.Kind
	}{
		{"xml", csdlXML, "application/xml", []payload.Kind{payload.MetadataDocument}},
		{"json", csdlJSON, "application/json", []payload.Kind{payload.MetadataDocument}},
		{"xml other root", `<feed/>`, "application/xml", nil},
		{"json no version", `{"value": []}`, "application/json", nil},
		{"json not json", `not json`, "application/json", nil},
	}

	for _, thisCase := range testCases {
		test.Run(thisCase.name, func(test *testing.T) {
			kinds, err := New().DetectPayloadKinds(
				context.Background(),
				newInfo(thisCase.body, thisCase.contentType),
				[]payload.Kind{payload.Resource, payload.MetadataDocument},
			)
			assert.NoError(test, err)
			assert.Equal(test, thisCase.expected, kinds)
		})
	}
}

func TestDetectLogsMissingDocument(test *testing.T) {
	testCases := []struct {
		body           string
		contentType    string
		representation string
	}{
		{`<feed/>`, "application/xml", "xml"},
		{`{"value": []}`, "application/json", "json"},
	}

	for _, thisCase := range testCases {
		test.Run(thisCase.representation, func(test *testing.T) {
			assert := assert.New(test)

			core, logs := observer.New(zapcore.DebugLevel)
			info := newInfo(thisCase.body, thisCase.contentType)
			info.Logger = zap.New(core)

			kinds, err := New().DetectPayloadKinds(
				context.Background(), info, []payload.Kind{payload.MetadataDocument},
			)
			assert.NoError(err)
			assert.Empty(kinds)

			entries := logs.FilterMessage("metadata detection found no csdl document").All()
			require.Len(test, entries, 1)
			assert.Equal(thisCase.representation, entries[0].ContextMap()["representation"])
		})
	}
}

func TestDetectNotPossible(test *testing.T) {
	kinds, err := New().DetectPayloadKinds(
		context.Background(),
		newInfo(csdlXML, "application/xml"),
		[]payload.Kind{payload.Resource},
	)
	assert.NoError(test, err)
	assert.Empty(test, kinds)
}

func TestReadXML(test *testing.T) {
	value, err := read(test, newInfo(csdlXML, "application/xml"))
	require.NoError(test, err)

	expected := &payload.MetadataDocumentValue{
		Version:          "4.0",
		Namespaces:       []string{"Sales", "Sales.Vocabulary"},
		EntityContainers: []string{"Container"},
	}
	diff := cmp.Diff(expected, value, cmpopts.IgnoreFields(payload.MetadataDocumentValue{}, "Raw"))
	assert.Empty(test, diff)
	assert.Equal(test, csdlXML, string(value.(*payload.MetadataDocumentValue).Raw))
}

func TestReadJSON(test *testing.T) {
	value, err := read(test, newInfo(csdlJSON, "application/json"))
	require.NoError(test, err)

	expected := &payload.MetadataDocumentValue{
		Version:          "4.01",
		Namespaces:       []string{"Audit", "Sales"},
		EntityContainers: []string{"Container"},
	}
	diff := cmp.Diff(expected, value, cmpopts.IgnoreFields(payload.MetadataDocumentValue{}, "Raw"))
	assert.Empty(test, diff)
}

func TestReadMalformed(test *testing.T) {
	assert := assert.New(test)

	_, err := read(test, newInfo(`<feed/>`, "application/xml"))
	assert.True(errors.Is(err, odataerrors.MalformedPayload))

	_, err = read(test, newInfo(`{"Sales": {}}`, "application/json"))
	assert.True(errors.Is(err, odataerrors.MalformedPayload))
}

func TestUnsupportedKinds(test *testing.T) {
	inputContext, err := New().CreateInputContext(
		context.Background(), newInfo("", "application/xml"),
	)
	require.NoError(test, err)

	_, err = inputContext.CreateReader(
		context.Background(), payload.MetadataDocument, formats.ReadOptions{},
	)
	assert.True(test, errors.Is(err, odataerrors.UnsupportedPayloadKind))
}
