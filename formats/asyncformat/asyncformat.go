// Async format: the application/http body of a completed asynchronous operation,
// which is itself a complete HTTP response.
package asyncformat

import (
	"bufio"
	"bytes"
	"context"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/payload"
	"go.uber.org/zap"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
)

const Name = "async"

var statusLinePrefix = []byte("HTTP/")

// Response is the inner response of an asynchronous operation.
type Response struct {
	StatusCode int
	// Full status line text, e.g. "200 OK".
	Status string
	// Headers and body of the inner response, ready to be read with a new message
	// reader.
	Message *message.Message
}

type Format struct{}

func New() *Format {
	return &Format{}
}

func (format *Format) Name() string {
	return Name
}

func (format *Format) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := make([]byte, len(statusLinePrefix))
	read, err := io.ReadFull(info.Stream, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(prefix[:read], statusLinePrefix) {
		return nil, nil
	}

	for _, kind := range possible {
		if kind == payload.Asynchronous {
			return []payload.Kind{payload.Asynchronous}, nil
		}
	}
	return nil, nil
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

func (asyncContext *inputContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	return nil, formats.UnsupportedKind(Name, kind)
}

// Reads the inner response as a *Response. The inner body is copied, so the returned
// message stays readable after the outer reader is closed.
func (asyncContext *inputContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	if kind != payload.Asynchronous {
		return nil, formats.UnsupportedKind(Name, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inner, err := http.ReadResponse(bufio.NewReader(asyncContext.info.Stream), nil)
	if err != nil {
		return nil, formats.Malformed(kind, err)
	}
	defer inner.Body.Close()

	body, err := ioutil.ReadAll(inner.Body)
	if err != nil {
		return nil, formats.Malformed(kind, err)
	}

	header := inner.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(message.HeaderContentLength, strconv.Itoa(len(body)))

	asyncContext.info.GetLogger().Debug(
		"read asynchronous response", zap.Int("status", inner.StatusCode),
	)

	return &Response{
		StatusCode: inner.StatusCode,
		Status:     inner.Status,
		Message:    message.NewResponse(header, body),
	}, nil
}

func (asyncContext *inputContext) Close() error {
	return nil
}
