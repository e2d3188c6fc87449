package messagereader

import (
	"context"
	"fmt"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/formats/asyncformat"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
)

// Kinds CreateReader serves.
var readerKinds = map[payload.Kind]bool{
	payload.Resource:    true,
	payload.ResourceSet: true,
	payload.Delta:       true,
	payload.Collection:  true,
	payload.Parameter:   true,
}

/*
verifyDirection rejects kinds the message direction cannot carry.

• Delta, Asynchronous, Error, ServiceDocument, MetadataDocument and
EntityReferenceLinks are only read from responses.

• Parameter is only read from requests.
*/
func (reader *Reader) verifyDirection(kind payload.Kind) error {
	isResponse := reader.message.IsResponse()

	responseOnly := kind == payload.Delta ||
		kind == payload.Asynchronous ||
		!kind.SupportedIn(false)
	if !isResponse && responseOnly {
		return odataerrors.DirectionMismatch.Newf(
			odataerrors.MsgDirectionResponseOnly, kind,
		).With("kind", kind.String())
	}
	if isResponse && !kind.SupportedIn(true) {
		return odataerrors.DirectionMismatch.Newf(
			odataerrors.MsgDirectionRequestOnly, kind,
		).With("kind", kind.String())
	}
	return nil
}

func optionName(options *formats.ReadOptions) string {
	switch {
	case options.ExpectedType != nil:
		return "expected type"
	case options.NavigationSource != nil:
		return "navigation source"
	default:
		return "property"
	}
}

/*
verifyOptions checks read options against the model and the kind being read, and fills
in ExpectedType from NavigationSource when only the latter is given.

Options need a user model. The expected type of a resource, resource set or delta must
be structured, and that of a collection must be a collection.
*/
func (reader *Reader) verifyOptions(kind payload.Kind, options *formats.ReadOptions) error {
	if options.IsEmpty() {
		return nil
	}
	if !edm.IsUserModel(reader.model) {
		return odataerrors.InvalidArgument.Newf(
			odataerrors.MsgOptionsWithoutModel, optionName(options),
		)
	}

	if options.ExpectedType == nil && options.NavigationSource != nil {
		options.ExpectedType = options.NavigationSource.EntityType()
	}
	if options.ExpectedType == nil {
		return nil
	}

	switch kind {
	case payload.Resource, payload.ResourceSet, payload.Delta:
		if !edm.IsStructured(options.ExpectedType) {
			return odataerrors.InvalidArgument.Newf(
				odataerrors.MsgExpectedTypeNotStructured, options.ExpectedType.FullName(),
			)
		}
	case payload.Collection:
		if options.ExpectedType.Kind() != edm.KindCollection {
			return odataerrors.InvalidArgument.Newf(
				odataerrors.MsgExpectedTypeNotCollection, options.ExpectedType.FullName(),
			)
		}
	}
	return nil
}

// verifyCanRead is the guard every read method runs before doing any work. options may
// be nil for reads which take none.
func (reader *Reader) verifyCanRead(
	requested mode, kind payload.Kind, options *formats.ReadOptions,
) error {
	if err := reader.guard.beginRead(requested); err != nil {
		return err
	}
	if err := reader.verifyDirection(kind); err != nil {
		return err
	}
	if options == nil {
		return nil
	}
	return reader.verifyOptions(kind, options)
}

func (reader *Reader) verifyCanCreateReader(
	requested mode, kind payload.Kind, options *formats.ReadOptions,
) error {
	if err := reader.guard.beginRead(requested); err != nil {
		return err
	}
	if !readerKinds[kind] {
		return odataerrors.InvalidArgument.Newf(odataerrors.MsgNotAReaderKind, kind)
	}
	if err := reader.verifyDirection(kind); err != nil {
		return err
	}
	return reader.verifyOptions(kind, options)
}

/*
readFromInput negotiates the content type against kinds, creates the input context of
the negotiated format and runs read against it. The reader owns the input context from
then on and closes it in Close.
*/
func readFromInput[T any](
	ctx context.Context,
	reader *Reader,
	kinds []payload.Kind,
	read func(ctx context.Context, inputContext formats.InputContext, kind payload.Kind) (T, error),
) (result T, err error) {
	resolution, err := reader.resolveContentType(kinds)
	if err != nil {
		return result, err
	}

	stream, err := reader.message.GetStream(ctx)
	if err != nil {
		return result, err
	}
	info := reader.GetOrCreateMessageInfo(stream, reader.isAsync())

	inputContext, err := resolution.Format.CreateInputContext(ctx, info)
	if err != nil {
		return result, err
	}
	reader.lock.Lock()
	reader.inputContext = inputContext
	reader.lock.Unlock()

	return read(ctx, inputContext, resolution.Kind)
}

// Reads a value of one of kinds and checks it has the Go type T.
func readTypedValue[T any](
	ctx context.Context,
	reader *Reader,
	kinds []payload.Kind,
	options formats.ReadOptions,
) (T, error) {
	return readFromInput(ctx, reader, kinds, func(
		ctx context.Context, inputContext formats.InputContext, kind payload.Kind,
	) (T, error) {
		var typed T
		value, err := inputContext.ReadValue(ctx, kind, options)
		if err != nil {
			return typed, err
		}
		typed, ok := value.(T)
		if !ok {
			return typed, odataerrors.UnexpectedPayload.Newf(
				odataerrors.MsgTypeMismatch, fmt.Sprintf("%T", value), fmt.Sprintf("%T", typed),
			)
		}
		return typed, nil
	})
}

// Kinds tried by ReadValue. A binary expected type prefers BinaryValue.
func valueKinds(expectedType edm.Type) []payload.Kind {
	if expectedType != nil && expectedType.FullName() == "Edm.Binary" {
		return []payload.Kind{payload.BinaryValue, payload.Value}
	}
	return []payload.Kind{payload.Value, payload.BinaryValue}
}

func (reader *Reader) createReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	return readFromInput(ctx, reader, []payload.Kind{kind}, func(
		ctx context.Context, inputContext formats.InputContext, kind payload.Kind,
	) (formats.ItemReader, error) {
		return inputContext.CreateReader(ctx, kind, options)
	})
}

func (reader *Reader) createBatchReader(ctx context.Context) (formats.ItemReader, error) {
	return reader.createReader(ctx, payload.Batch, formats.ReadOptions{})
}

func (reader *Reader) readAsynchronous(ctx context.Context) (*asyncformat.Response, error) {
	return readTypedValue[*asyncformat.Response](
		ctx, reader, []payload.Kind{payload.Asynchronous}, formats.ReadOptions{},
	)
}

func (reader *Reader) readServiceDocument(ctx context.Context) (*payload.ServiceDocumentValue, error) {
	return readTypedValue[*payload.ServiceDocumentValue](
		ctx, reader, []payload.Kind{payload.ServiceDocument}, formats.ReadOptions{},
	)
}

func (reader *Reader) readMetadataDocument(
	ctx context.Context,
) (*payload.MetadataDocumentValue, error) {
	return readTypedValue[*payload.MetadataDocumentValue](
		ctx, reader, []payload.Kind{payload.MetadataDocument}, formats.ReadOptions{},
	)
}

func (reader *Reader) readError(ctx context.Context) (*payload.ErrorPayload, error) {
	return readTypedValue[*payload.ErrorPayload](
		ctx, reader, []payload.Kind{payload.Error}, formats.ReadOptions{},
	)
}

func (reader *Reader) readProperty(
	ctx context.Context, options formats.ReadOptions,
) (*payload.PropertyValue, error) {
	return readTypedValue[*payload.PropertyValue](
		ctx, reader, []payload.Kind{payload.Property}, options,
	)
}

func (reader *Reader) readEntityReferenceLink(
	ctx context.Context,
) (*payload.ReferenceLink, error) {
	return readTypedValue[*payload.ReferenceLink](
		ctx, reader, []payload.Kind{payload.EntityReferenceLink}, formats.ReadOptions{},
	)
}

func (reader *Reader) readEntityReferenceLinks(
	ctx context.Context,
) (*payload.ReferenceLinks, error) {
	return readTypedValue[*payload.ReferenceLinks](
		ctx, reader, []payload.Kind{payload.EntityReferenceLinks}, formats.ReadOptions{},
	)
}

func (reader *Reader) readValue(
	ctx context.Context, expectedType edm.Type,
) (interface{}, error) {
	return readTypedValue[interface{}](
		ctx, reader, valueKinds(expectedType), formats.ReadOptions{ExpectedType: expectedType},
	)
}

// DetectPayloadKind lists the payload kinds the message may hold, sorted by kind. It
// can be called once, before any read method, and one read may follow it.
func (reader *Reader) DetectPayloadKind(ctx context.Context) ([]payload.DetectionResult, error) {
	if err := reader.guard.beginDetection(modeSync); err != nil {
		return nil, err
	}
	return reader.detectPayloadKind(ctx, false)
}

/*
CreateReader returns a reader over the items of a Resource, ResourceSet, Delta,
Collection or Parameter payload. Delta is only read from responses and Parameter only
from requests.

Items are the pointer types of the payload package: resource sets and deltas yield
their *ResourceSetInfo header, then *ResourceValue and *DeletedResource items;
collections yield *CollectionStart then the values.
*/
func (reader *Reader) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	if err := reader.verifyCanCreateReader(modeSync, kind, &options); err != nil {
		return nil, err
	}
	return reader.createReader(ctx, kind, options)
}

// CreateBatchReader returns a reader over the operations of a batch. With the default
// resolver the items are *batchformat.Operation.
func (reader *Reader) CreateBatchReader(ctx context.Context) (formats.ItemReader, error) {
	if err := reader.verifyCanRead(modeSync, payload.Batch, nil); err != nil {
		return nil, err
	}
	return reader.createBatchReader(ctx)
}

// CreateAsynchronousReader reads the inner response of an asynchronous operation.
func (reader *Reader) CreateAsynchronousReader(
	ctx context.Context,
) (*asyncformat.Response, error) {
	if err := reader.verifyCanRead(modeSync, payload.Asynchronous, nil); err != nil {
		return nil, err
	}
	return reader.readAsynchronous(ctx)
}

func (reader *Reader) ReadServiceDocument(
	ctx context.Context,
) (*payload.ServiceDocumentValue, error) {
	if err := reader.verifyCanRead(modeSync, payload.ServiceDocument, nil); err != nil {
		return nil, err
	}
	return reader.readServiceDocument(ctx)
}

func (reader *Reader) ReadMetadataDocument(
	ctx context.Context,
) (*payload.MetadataDocumentValue, error) {
	if err := reader.verifyCanRead(modeSync, payload.MetadataDocument, nil); err != nil {
		return nil, err
	}
	return reader.readMetadataDocument(ctx)
}

func (reader *Reader) ReadError(ctx context.Context) (*payload.ErrorPayload, error) {
	if err := reader.verifyCanRead(modeSync, payload.Error, nil); err != nil {
		return nil, err
	}
	return reader.readError(ctx)
}

// ReadProperty reads a single property. options.Property names the expected property.
func (reader *Reader) ReadProperty(
	ctx context.Context, options formats.ReadOptions,
) (*payload.PropertyValue, error) {
	if err := reader.verifyCanRead(modeSync, payload.Property, &options); err != nil {
		return nil, err
	}
	return reader.readProperty(ctx, options)
}

func (reader *Reader) ReadEntityReferenceLink(
	ctx context.Context,
) (*payload.ReferenceLink, error) {
	if err := reader.verifyCanRead(modeSync, payload.EntityReferenceLink, nil); err != nil {
		return nil, err
	}
	return reader.readEntityReferenceLink(ctx)
}

func (reader *Reader) ReadEntityReferenceLinks(
	ctx context.Context,
) (*payload.ReferenceLinks, error) {
	if err := reader.verifyCanRead(modeSync, payload.EntityReferenceLinks, nil); err != nil {
		return nil, err
	}
	return reader.readEntityReferenceLinks(ctx)
}

/*
ReadValue reads a raw Value or BinaryValue. expectedType is optional and does not need
a model: a primitive type converts the text, e.g. Edm.Int32 to int64, and Edm.Binary
reads the body as bytes.
*/
func (reader *Reader) ReadValue(
	ctx context.Context, expectedType edm.Type,
) (interface{}, error) {
	if err := reader.verifyCanRead(modeSync, payload.Value, nil); err != nil {
		return nil, err
	}
	return reader.readValue(ctx, expectedType)
}
