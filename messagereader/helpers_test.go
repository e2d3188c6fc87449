package messagereader

import (
	"context"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/payload"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const fakeMediaType = "application/fake"

func newHeader(contentType string, body string) http.Header {
	header := http.Header{}
	if contentType != "" {
		header.Set(message.HeaderContentType, contentType)
	}
	header.Set(message.HeaderContentLength, strconv.Itoa(len(body)))
	return header
}

func newResponse(contentType string, body string) *message.Message {
	return message.NewResponse(newHeader(contentType, body), []byte(body))
}

func newRequest(contentType string, body string) *message.Message {
	return message.NewRequest(newHeader(contentType, body), []byte(body))
}

// Body which records whether it was closed.
type trackedBody struct {
	io.Reader
	closed   int32
	closeErr error
}

func newTrackedBody(body string) *trackedBody {
	return &trackedBody{Reader: strings.NewReader(body)}
}

func (body *trackedBody) Close() error {
	atomic.AddInt32(&body.closed, 1)
	return body.closeErr
}

func (body *trackedBody) Closed() int {
	return int(atomic.LoadInt32(&body.closed))
}

type fakeContext struct {
	closed   int32
	closeErr error
	// Returned by ReadValue. The requested kind is returned when nil.
	value interface{}
}

func (inputContext *fakeContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	return formats.NewSliceReader([]interface{}{kind, options}), nil
}

func (inputContext *fakeContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	if inputContext.value != nil {
		return inputContext.value, nil
	}
	return kind, nil
}

func (inputContext *fakeContext) Close() error {
	atomic.AddInt32(&inputContext.closed, 1)
	return inputContext.closeErr
}

func (inputContext *fakeContext) Closed() int {
	return int(atomic.LoadInt32(&inputContext.closed))
}

type detectFunc func(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error)

// Format whose detection and input context are scripted by the test.
type fakeFormat struct {
	name   string
	detect detectFunc

	lock        sync.Mutex
	detectCalls int
	possible    []payload.Kind
	inputCtx    *fakeContext
	info        *formats.MessageInfo
}

func newFakeFormat(name string, detect detectFunc) *fakeFormat {
	return &fakeFormat{name: name, detect: detect, inputCtx: &fakeContext{}}
}

func (format *fakeFormat) Name() string {
	return format.name
}

// Reports every possible kind unless a detect func is set.
func (format *fakeFormat) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	format.lock.Lock()
	format.detectCalls++
	format.possible = possible
	format.lock.Unlock()

	if format.detect == nil {
		return possible, nil
	}
	return format.detect(ctx, info, possible)
}

func (format *fakeFormat) CreateInputContext(
	ctx context.Context, info *formats.MessageInfo,
) (formats.InputContext, error) {
	format.lock.Lock()
	defer format.lock.Unlock()
	format.info = info
	return format.inputCtx, nil
}

func (format *fakeFormat) DetectCalls() int {
	format.lock.Lock()
	defer format.lock.Unlock()
	return format.detectCalls
}

func (format *fakeFormat) Info() *formats.MessageInfo {
	format.lock.Lock()
	defer format.lock.Unlock()
	return format.info
}

/*
Returns a resolver where fakeMediaType maps ResourceSet to second and Collection to
first, so detection finds the two kinds in ResourceSet, Collection order and runs the
second format before the first.
*/
func newAmbiguousResolver(
	first *fakeFormat, second *fakeFormat,
) *formats.MediaTypeResolver {
	resolver := formats.NewMediaTypeResolver()
	resolver.Register(payload.Collection, fakeMediaType, first)
	resolver.Register(payload.ResourceSet, fakeMediaType, second)
	return resolver
}

// Reads every item of an item reader.
func drain(ctx context.Context, reader formats.ItemReader) ([]interface{}, error) {
	var items []interface{}
	for {
		item, err := reader.Read(ctx)
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}
