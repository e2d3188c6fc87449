// Raw value format for text/plain and application/octet-stream payloads.
package rawformat

import (
	"bytes"
	"context"
	"encoding/base64"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"golang.org/x/xerrors"
	"strconv"
	"strings"
)

const Name = "raw"

// Format reads raw values: text for Value and bytes for BinaryValue.
type Format struct{}

func New() *Format {
	return &Format{}
}

func (format *Format) Name() string {
	return Name
}

// Raw bodies carry no structure to inspect; the content type already decided between
// Value and BinaryValue, so every raw kind the content type allows is reported.
func (format *Format) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var detected []payload.Kind
	for _, kind := range possible {
		if kind == payload.Value || kind == payload.BinaryValue {
			detected = append(detected, kind)
		}
	}
	return detected, nil
}

func (format *Format) CreateInputContext(
	ctx context.Context, info *formats.MessageInfo,
) (formats.InputContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &inputContext{info: info}, nil
}

type inputContext struct {
	info *formats.MessageInfo
}

func (rawContext *inputContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	return nil, formats.UnsupportedKind(Name, kind)
}

/*
ReadValue returns the body. BinaryValue is returned as []byte. Value is returned as a
string decoded with the message charset, or converted when the expected type is a
primitive type:

• Edm.Boolean to bool

• Edm.Byte, Edm.SByte, Edm.Int16, Edm.Int32 and Edm.Int64 to int64

• Edm.Single, Edm.Double and Edm.Decimal to float64

• Edm.Binary to []byte, decoding base64
*/
func (rawContext *inputContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case payload.BinaryValue:
		buffer := new(bytes.Buffer)
		if _, err := buffer.ReadFrom(rawContext.info.Stream); err != nil {
			return nil, wrapReadError(kind, err)
		}
		return buffer.Bytes(), nil
	case payload.Value:
		buffer := new(bytes.Buffer)
		if _, err := buffer.ReadFrom(rawContext.info.TextStream()); err != nil {
			return nil, wrapReadError(kind, err)
		}
		return convert(buffer.String(), options.ExpectedType)
	}
	return nil, formats.UnsupportedKind(Name, kind)
}

func (rawContext *inputContext) Close() error {
	return nil
}

func wrapReadError(kind payload.Kind, err error) error {
	if _, ok := odataerrors.AsODataError(err); ok {
		return err
	}
	return formats.Malformed(kind, err)
}

func convert(text string, expectedType edm.Type) (interface{}, error) {
	if expectedType == nil || expectedType.Kind() != edm.KindPrimitive {
		return text, nil
	}

	var converted interface{}
	var err error
	trimmed := strings.TrimSpace(text)

	switch expectedType.FullName() {
	case "Edm.Boolean":
		converted, err = strconv.ParseBool(trimmed)
	case "Edm.Byte", "Edm.SByte", "Edm.Int16", "Edm.Int32", "Edm.Int64":
		converted, err = strconv.ParseInt(trimmed, 10, 64)
	case "Edm.Single", "Edm.Double", "Edm.Decimal":
		converted, err = strconv.ParseFloat(trimmed, 64)
	case "Edm.Binary":
		converted, err = base64.StdEncoding.DecodeString(trimmed)
	default:
		return text, nil
	}

	if err != nil {
		return nil, odataerrors.MalformedPayload.Wrap(
			err,
			odataerrors.MsgMalformedPayload,
			payload.Value,
			xerrors.Errorf("%q is not a valid %v: %w", trimmed, expectedType.FullName(), err),
		)
	}
	return converted, nil
}
