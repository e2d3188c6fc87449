package rawformat

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"context"
	"errors"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func readValue(
	test *testing.T, info *formats.MessageInfo, kind payload.Kind, expected edm.Type,
) (interface{}, error) {
	inputContext, err := New().CreateInputContext(context.Background(), info)
	require.NoError(test, err)
	defer inputContext.Close()

	return inputContext.ReadValue(
		context.Background(), kind, formats.ReadOptions{ExpectedType: expected},
	)
}

func TestDetect(test *testing.T) {
	kinds, err := New().DetectPayloadKinds(
		context.Background(),
		&formats.MessageInfo{},
		[]payload.Kind{payload.Resource, payload.BinaryValue},
	)
	assert.NoError(test, err)
	assert.Equal(test, []payload.Kind{payload.BinaryValue}, kinds)
}

func TestReadText(test *testing.T) {
	value, err := readValue(
		test, &formats.MessageInfo{Stream: strings.NewReader("hello")}, payload.Value, nil,
	)
	assert.NoError(test, err)
	assert.Equal(test, "hello", value)
}

func TestReadTextCharset(test *testing.T) {
	encoding, name, err := formats.ResolveCharset("iso-8859-1")
	require.NoError(test, err)

	value, err := readValue(test, &formats.MessageInfo{
		Charset:  name,
		Encoding: encoding,
		Stream:   strings.NewReader("na\xefve"),
	}, payload.Value, nil)
	assert.NoError(test, err)
	assert.Equal(test, "naïve", value)
}

func TestReadBinary(test *testing.T) {
	value, err := readValue(
		test, &formats.MessageInfo{Stream: strings.NewReader("\x00\x01")},
		payload.BinaryValue, nil,
	)
	assert.NoError(test, err)
	assert.Equal(test, []byte{0, 1}, value)
}

func TestConversions(test *testing.T) {
	assert := assert.New(test)

	cases := []struct {
		body     string
		typeName string
		expected interface{}
	}{
		{"true", "Edm.Boolean", true},
		{" 42 ", "Edm.Int32", int64(42)},
		{"1.5", "Edm.Double", 1.5},
		{"AAE=", "Edm.Binary", []byte{0, 1}},
		{"x", "Edm.String", "x"},
	}
	for _, testCase := range cases {
		value, err := readValue(
			test,
			&formats.MessageInfo{Stream: strings.NewReader(testCase.body)},
			payload.Value,
			edm.Primitive(testCase.typeName),
		)
		assert.NoError(err, testCase.typeName)
		assert.Equal(testCase.expected, value, testCase.typeName)
	}

	_, err := readValue(
		test,
		&formats.MessageInfo{Stream: strings.NewReader("forty")},
		payload.Value,
		edm.Primitive("Edm.Int32"),
	)
	assert.True(errors.Is(err, odataerrors.MalformedPayload))
}

func TestUnsupported(test *testing.T) {
	assert := assert.New(test)

	inputContext, err := New().CreateInputContext(context.Background(), &formats.MessageInfo{})
	require.NoError(test, err)

	_, err = inputContext.CreateReader(context.Background(), payload.Resource, formats.ReadOptions{})
	assert.True(errors.Is(err, odataerrors.UnsupportedPayloadKind))
	_, err = inputContext.ReadValue(context.Background(), payload.Error, formats.ReadOptions{})
	assert.True(errors.Is(err, odataerrors.UnsupportedPayloadKind))
}
