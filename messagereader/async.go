package messagereader

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/async"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/formats/asyncformat"
	"github.com/illuscio-dev/odatareader-go/payload"
)

/*
AsyncReader is the non-blocking view of a Reader. Each operation runs the same checks
as its blocking twin before returning, so usage errors come back as already failed
futures, and then does the work on its own goroutine.

During detection each format inspects the buffered body on its own goroutine.
*/
type AsyncReader struct {
	reader *Reader
}

// Returns the non-blocking view of the reader.
func (reader *Reader) Async() *AsyncReader {
	return &AsyncReader{reader: reader}
}

func (view *AsyncReader) DetectPayloadKind(
	ctx context.Context,
) *async.Future[[]payload.DetectionResult] {
	if err := view.reader.guard.beginDetection(modeAsync); err != nil {
		return async.Failed[[]payload.DetectionResult](err)
	}
	return async.Go(ctx, func(ctx context.Context) ([]payload.DetectionResult, error) {
		return view.reader.detectPayloadKind(ctx, true)
	})
}

func (view *AsyncReader) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) *async.Future[formats.ItemReader] {
	if err := view.reader.verifyCanCreateReader(modeAsync, kind, &options); err != nil {
		return async.Failed[formats.ItemReader](err)
	}
	return async.Go(ctx, func(ctx context.Context) (formats.ItemReader, error) {
		return view.reader.createReader(ctx, kind, options)
	})
}

func (view *AsyncReader) CreateBatchReader(
	ctx context.Context,
) *async.Future[formats.ItemReader] {
	if err := view.reader.verifyCanRead(modeAsync, payload.Batch, nil); err != nil {
		return async.Failed[formats.ItemReader](err)
	}
	return async.Go(ctx, view.reader.createBatchReader)
}

func (view *AsyncReader) CreateAsynchronousReader(
	ctx context.Context,
) *async.Future[*asyncformat.Response] {
	if err := view.reader.verifyCanRead(modeAsync, payload.Asynchronous, nil); err != nil {
		return async.Failed[*asyncformat.Response](err)
	}
	return async.Go(ctx, view.reader.readAsynchronous)
}

func (view *AsyncReader) ReadServiceDocument(
	ctx context.Context,
) *async.Future[*payload.ServiceDocumentValue] {
	if err := view.reader.verifyCanRead(modeAsync, payload.ServiceDocument, nil); err != nil {
		return async.Failed[*payload.ServiceDocumentValue](err)
	}
	return async.Go(ctx, view.reader.readServiceDocument)
}

func (view *AsyncReader) ReadMetadataDocument(
	ctx context.Context,
) *async.Future[*payload.MetadataDocumentValue] {
	if err := view.reader.verifyCanRead(modeAsync, payload.MetadataDocument, nil); err != nil {
		return async.Failed[*payload.MetadataDocumentValue](err)
	}
	return async.Go(ctx, view.reader.readMetadataDocument)
}

func (view *AsyncReader) ReadError(ctx context.Context) *async.Future[*payload.ErrorPayload] {
	if err := view.reader.verifyCanRead(modeAsync, payload.Error, nil); err != nil {
		return async.Failed[*payload.ErrorPayload](err)
	}
	return async.Go(ctx, view.reader.readError)
}

func (view *AsyncReader) ReadProperty(
	ctx context.Context, options formats.ReadOptions,
) *async.Future[*payload.PropertyValue] {
	if err := view.reader.verifyCanRead(modeAsync, payload.Property, &options); err != nil {
		return async.Failed[*payload.PropertyValue](err)
	}
	return async.Go(ctx, func(ctx context.Context) (*payload.PropertyValue, error) {
		return view.reader.readProperty(ctx, options)
	})
}

func (view *AsyncReader) ReadEntityReferenceLink(
	ctx context.Context,
) *async.Future[*payload.ReferenceLink] {
	if err := view.reader.verifyCanRead(modeAsync, payload.EntityReferenceLink, nil); err != nil {
		return async.Failed[*payload.ReferenceLink](err)
	}
	return async.Go(ctx, view.reader.readEntityReferenceLink)
}

func (view *AsyncReader) ReadEntityReferenceLinks(
	ctx context.Context,
) *async.Future[*payload.ReferenceLinks] {
	if err := view.reader.verifyCanRead(modeAsync, payload.EntityReferenceLinks, nil); err != nil {
		return async.Failed[*payload.ReferenceLinks](err)
	}
	return async.Go(ctx, view.reader.readEntityReferenceLinks)
}

func (view *AsyncReader) ReadValue(
	ctx context.Context, expectedType edm.Type,
) *async.Future[interface{}] {
	if err := view.reader.verifyCanRead(modeAsync, payload.Value, nil); err != nil {
		return async.Failed[interface{}](err)
	}
	return async.Go(ctx, func(ctx context.Context) (interface{}, error) {
		return view.reader.readValue(ctx, expectedType)
	})
}

// Same as Reader.Format.
func (view *AsyncReader) Format() (formats.Format, error) {
	return view.reader.Format()
}

// Same as Reader.Close.
func (view *AsyncReader) Close() error {
	return view.reader.Close()
}
