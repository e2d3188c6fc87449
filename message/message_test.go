package message

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"bytes"
	"context"
	"errors"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"
)

type closeRecorder struct {
	io.Reader
	closed int
}

func (recorder *closeRecorder) Close() error {
	recorder.closed++
	return nil
}

func TestHeaders(test *testing.T) {
	assert := assert.New(test)

	header := make(http.Header)
	header.Set("content-type", " application/json ")
	header.Set("Content-Length", "12")
	msg := NewResponse(header, nil)

	assert.True(msg.IsResponse())
	assert.Equal(Response, msg.Direction())
	assert.Equal("application/json", msg.ContentType())
	assert.Equal("application/json", msg.Header("CONTENT-TYPE"))

	length, ok := msg.ContentLength()
	assert.True(ok)
	assert.Equal(int64(12), length)
}

func TestContentLengthInvalid(test *testing.T) {
	assert := assert.New(test)

	for _, value := range []string{"", "abc", "-4"} {
		header := make(http.Header)
		if value != "" {
			header.Set(HeaderContentLength, value)
		}
		_, ok := NewRequest(header, nil).ContentLength()
		assert.False(ok, value)
	}
}

func TestFromHTTPRequest(test *testing.T) {
	assert := assert.New(test)

	request, err := http.NewRequest("POST", "http://host/svc", strings.NewReader("abc"))
	require.NoError(test, err)
	request.Header.Set("Content-Type", "text/plain")

	msg := FromHTTPRequest(request)
	assert.False(msg.IsResponse())
	length, ok := msg.ContentLength()
	assert.True(ok)
	assert.Equal(int64(3), length)

	stream, err := msg.GetStream(context.Background())
	require.NoError(test, err)
	body, err := ioutil.ReadAll(stream)
	assert.NoError(err)
	assert.Equal("abc", string(body))
}

func TestFromHTTPResponse(test *testing.T) {
	response := &http.Response{
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          ioutil.NopCloser(strings.NewReader("{}")),
		ContentLength: 2,
	}
	msg := FromHTTPResponse(response)
	assert.True(test, msg.IsResponse())
	assert.Equal(test, "2", msg.Header(HeaderContentLength))
}

func TestBodyObtainedOnce(test *testing.T) {
	assert := assert.New(test)

	calls := 0
	body := &closeRecorder{Reader: strings.NewReader("x")}
	msg := NewLazy(Request, nil, func(context.Context) (io.ReadCloser, error) {
		calls++
		return body, nil
	})

	first, err := msg.GetStream(context.Background())
	assert.NoError(err)
	second, err := msg.GetStream(context.Background())
	assert.NoError(err)

	assert.Equal(1, calls)
	// Without a size limit the body itself is the stream.
	assert.Same(body, first)
	assert.Same(first, second)
}

func TestBodyError(test *testing.T) {
	msg := NewLazy(Request, nil, func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("no body for you")
	})
	_, err := msg.GetStream(context.Background())
	assert.EqualError(test, err, "no body for you")
}

func TestBufferingStreamKept(test *testing.T) {
	assert := assert.New(test)

	msg := NewRequest(nil, []byte("payload"))
	msg.SetUseBuffering(true)
	assert.True(msg.UseBuffering())

	stream, err := msg.GetStream(context.Background())
	require.NoError(test, err)
	buffering, ok := stream.(*BufferingStream)
	require.True(test, ok)
	assert.Same(buffering, msg.BufferingStream())

	// Turning the flag off keeps the buffering stream in place for the real read.
	msg.SetUseBuffering(false)
	again, err := msg.GetStream(context.Background())
	assert.NoError(err)
	assert.Same(buffering, again)
}

func TestMaxSize(test *testing.T) {
	assert := assert.New(test)

	msg := NewRequest(nil, bytes.Repeat([]byte("a"), 2048))
	msg.SetMaxSize(1024)
	assert.Equal(int64(1024), msg.MaxSize())

	stream, err := msg.GetStream(context.Background())
	require.NoError(test, err)

	read, err := ioutil.ReadAll(stream)
	assert.True(errors.Is(err, odataerrors.MessageSizeExceeded))
	assert.Len(read, 1024)
	assert.Contains(err.Error(), "1.0 kB")
}

func TestMaxSizeExact(test *testing.T) {
	msg := NewRequest(nil, bytes.Repeat([]byte("a"), 1024))
	msg.SetMaxSize(1024)

	stream, err := msg.GetStream(context.Background())
	require.NoError(test, err)

	read, err := ioutil.ReadAll(stream)
	assert.NoError(test, err)
	assert.Len(test, read, 1024)
}

func TestClose(test *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader("x")}
	msg := New(Response, nil, body)

	_, err := msg.GetStream(context.Background())
	require.NoError(test, err)
	assert.NoError(test, msg.Close())
	assert.Equal(test, 1, body.closed)
}
