/*
Contracts between the message reader and the wire formats it dispatches to.

A Format knows how to detect which payload kinds a body holds and how to create an
InputContext which reads one payload. The MediaTypeResolver maps content types to
formats per payload kind. Formats are registered against a resolver, so support for a
content type is added once and picked up by every reader using that resolver.
*/
package formats

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"io"
)

// Format is a wire-level serialization of one or more payload kinds.
type Format interface {
	// Unique name of the format, used in detection results.
	Name() string

	// DetectPayloadKinds inspects info.Stream and returns the kinds the body may hold.
	// possible lists the kinds the content type allows for this format; other kinds
	// are dropped by the reader. Returning no kinds means "no opinion" and is not an
	// error.
	DetectPayloadKinds(
		ctx context.Context, info *MessageInfo, possible []payload.Kind,
	) ([]payload.Kind, error)

	// CreateInputContext returns a context reading info.Stream.
	CreateInputContext(ctx context.Context, info *MessageInfo) (InputContext, error)
}

// ReadOptions refine a read with model information. All fields are optional, but
// they can only be used when the reader has a user model.
type ReadOptions struct {
	// Type the payload is expected to have.
	ExpectedType edm.Type
	// Entity set or singleton the payload belongs to.
	NavigationSource edm.NavigationSource
	// Name of the property expected by ReadProperty.
	Property string
}

// Returns true if no option is set.
func (options ReadOptions) IsEmpty() bool {
	return options.ExpectedType == nil && options.NavigationSource == nil &&
		options.Property == ""
}

// ItemReader yields the items of a streaming payload, returning io.EOF after the last.
type ItemReader interface {
	Read(ctx context.Context) (interface{}, error)
}

/*
InputContext reads a single payload in one format.

CreateReader serves the streaming kinds: Resource, ResourceSet, Delta, Collection,
Parameter and Batch. ReadValue serves the kinds read in one go: Property, Error,
ServiceDocument, MetadataDocument, EntityReferenceLink, EntityReferenceLinks, Value,
BinaryValue and Asynchronous. A context returns an UnsupportedPayloadKind error for
kinds it does not read.
*/
type InputContext interface {
	CreateReader(
		ctx context.Context, kind payload.Kind, options ReadOptions,
	) (ItemReader, error)
	ReadValue(
		ctx context.Context, kind payload.Kind, options ReadOptions,
	) (interface{}, error)
	Close() error
}

// Returns the error an input context reports for a kind it cannot read.
func UnsupportedKind(format string, kind payload.Kind) error {
	return odataerrors.UnsupportedPayloadKind.Newf(
		odataerrors.MsgUnsupportedPayloadKind, format, kind,
	)
}

// Returns a MalformedPayload error for kind wrapping source.
func Malformed(kind payload.Kind, source error) error {
	return odataerrors.MalformedPayload.Wrap(
		source, odataerrors.MsgMalformedPayload, kind, source,
	)
}

// SliceReader is an ItemReader over items that are already in memory.
type SliceReader struct {
	items []interface{}
	index int
}

func NewSliceReader(items []interface{}) *SliceReader {
	return &SliceReader{items: items}
}

func (reader *SliceReader) Read(ctx context.Context) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reader.index >= len(reader.items) {
		return nil, io.EOF
	}
	item := reader.items[reader.index]
	reader.index++
	return item, nil
}
