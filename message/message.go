// In-flight HTTP-like messages and the body stream wrappers used while reading them.
package message

import (
	"bytes"
	"context"
	"github.com/dustin/go-humanize"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Direction tells whether a message is a request or a response.
type Direction int

const (
	Request Direction = iota
	Response
)

func (direction Direction) String() string {
	if direction == Response {
		return "response"
	}
	return "request"
}

// Header names the reader looks at.
const (
	HeaderContentType       = "Content-Type"
	HeaderContentLength     = "Content-Length"
	HeaderODataVersion      = "OData-Version"
	HeaderPreferenceApplied = "Preference-Applied"
)

// BodyFunc lazily produces the body of a message. It is called at most once.
type BodyFunc func(ctx context.Context) (io.ReadCloser, error)

/*
Message is the payload being read together with its headers.

The body is obtained lazily, at most once, through GetStream. A Message belongs to one
reader for the duration of one read and must not be reused.
*/
type Message struct {
	direction Direction
	header    http.Header
	body      BodyFunc

	// Maximum number of body bytes which may be read. Zero or less means no limit.
	maxSize int64

	useBuffering bool

	lock            sync.Mutex
	stream          io.Reader
	bufferingStream *BufferingStream
	obtained        bool
}

// Creates a message from a header set and a body. A nil body is an empty body.
func New(direction Direction, header http.Header, body io.Reader) *Message {
	if header == nil {
		header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}
	readCloser, ok := body.(io.ReadCloser)
	if !ok {
		readCloser = ioutil.NopCloser(body)
	}
	return NewLazy(direction, header, func(context.Context) (io.ReadCloser, error) {
		return readCloser, nil
	})
}

// Creates a message whose body is produced on first use.
func NewLazy(direction Direction, header http.Header, body BodyFunc) *Message {
	if header == nil {
		header = make(http.Header)
	}
	return &Message{
		direction: direction,
		header:    header,
		body:      body,
	}
}

// Convenience constructor for a request message with a byte body.
func NewRequest(header http.Header, body []byte) *Message {
	return New(Request, header, bytes.NewReader(body))
}

// Convenience constructor for a response message with a byte body.
func NewResponse(header http.Header, body []byte) *Message {
	return New(Response, header, bytes.NewReader(body))
}

// Wraps an incoming server request. Content-Length is taken from the request when the
// header itself is absent.
func FromHTTPRequest(request *http.Request) *Message {
	header := request.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get(HeaderContentLength) == "" && request.ContentLength >= 0 {
		header.Set(HeaderContentLength, strconv.FormatInt(request.ContentLength, 10))
	}
	return New(Request, header, request.Body)
}

// Wraps a client response. Content-Length is taken from the response when the header
// itself is absent.
func FromHTTPResponse(response *http.Response) *Message {
	header := response.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get(HeaderContentLength) == "" && response.ContentLength >= 0 {
		header.Set(HeaderContentLength, strconv.FormatInt(response.ContentLength, 10))
	}
	return New(Response, header, response.Body)
}

func (message *Message) Direction() Direction {
	return message.direction
}

func (message *Message) IsResponse() bool {
	return message.direction == Response
}

// Returns the header value for name. Lookup ignores case.
func (message *Message) Header(name string) string {
	return strings.TrimSpace(message.header.Get(name))
}

// Returns the underlying header set.
func (message *Message) Headers() http.Header {
	return message.header
}

func (message *Message) ContentType() string {
	return message.Header(HeaderContentType)
}

// Returns the declared body length. ok is false when the header is absent or is not a
// valid length.
func (message *Message) ContentLength() (length int64, ok bool) {
	value := message.Header(HeaderContentLength)
	if value == "" {
		return 0, false
	}
	length, err := strconv.ParseInt(value, 10, 64)
	if err != nil || length < 0 {
		return 0, false
	}
	return length, true
}

// Sets the body size limit. Zero or less disables the limit.
func (message *Message) SetMaxSize(maxSize int64) {
	message.maxSize = maxSize
}

func (message *Message) MaxSize() int64 {
	return message.maxSize
}

// Makes the next GetStream return a BufferingStream.
func (message *Message) SetUseBuffering(useBuffering bool) {
	message.lock.Lock()
	defer message.lock.Unlock()
	message.useBuffering = useBuffering
}

func (message *Message) UseBuffering() bool {
	message.lock.Lock()
	defer message.lock.Unlock()
	return message.useBuffering
}

// Returns the buffering stream if one was allocated.
func (message *Message) BufferingStream() *BufferingStream {
	message.lock.Lock()
	defer message.lock.Unlock()
	return message.bufferingStream
}

/*
GetStream returns the body stream. The underlying body is obtained on the first call
and the same stream is returned afterwards.

When buffering is requested and no buffering stream exists yet, the body is wrapped in
a BufferingStream which is kept for later calls, so the reader created after payload
kind detection sees the bytes detection buffered.
*/
func (message *Message) GetStream(ctx context.Context) (io.Reader, error) {
	message.lock.Lock()
	defer message.lock.Unlock()

	if !message.obtained {
		body, err := message.body(ctx)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = http.NoBody
		}
		message.obtained = true
		message.stream = newLimitedReader(body, message.maxSize)
	}

	if message.bufferingStream != nil {
		return message.bufferingStream, nil
	}
	if message.useBuffering {
		message.bufferingStream = NewBufferingStream(message.stream)
		return message.bufferingStream, nil
	}
	return message.stream, nil
}

// Closes the body if it was obtained.
func (message *Message) Close() error {
	message.lock.Lock()
	defer message.lock.Unlock()

	if message.bufferingStream != nil {
		return message.bufferingStream.Close()
	}
	if closer, ok := message.stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// limitedReader fails with a quota error once more than max bytes were read.
type limitedReader struct {
	source    io.ReadCloser
	max       int64
	remaining int64
}

func newLimitedReader(source io.ReadCloser, max int64) io.ReadCloser {
	if max <= 0 {
		return source
	}
	return &limitedReader{source: source, max: max, remaining: max}
}

func (reader *limitedReader) Read(into []byte) (int, error) {
	if reader.remaining < 0 {
		return 0, reader.exceeded()
	}
	// Read one byte past the limit so exceeding it can be told apart from hitting it.
	if int64(len(into)) > reader.remaining+1 {
		into = into[:reader.remaining+1]
	}
	read, err := reader.source.Read(into)
	reader.remaining -= int64(read)
	if reader.remaining < 0 {
		return read + int(reader.remaining), reader.exceeded()
	}
	return read, err
}

func (reader *limitedReader) exceeded() error {
	return odataerrors.MessageSizeExceeded.Newf(
		odataerrors.MsgMessageSizeExceeded, humanize.Bytes(uint64(reader.max)),
	)
}

func (reader *limitedReader) Close() error {
	return reader.source.Close()
}
