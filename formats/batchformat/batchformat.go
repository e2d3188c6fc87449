// Batch format: multipart/mixed batch payloads whose parts are application/http
// operations, optionally grouped into change sets.
package batchformat

import (
	"bufio"
	"bytes"
	"context"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

const Name = "batch"

// Operation is one request or response of a batch.
type Operation struct {
	// Content-ID of the part, if any.
	ContentID string
	// Boundary of the enclosing change set, empty outside change sets.
	ChangeSet string

	// Set for request operations.
	Method string
	URL    string
	// Set for response operations.
	StatusCode int

	// Headers and body of the operation, ready to be read with a new message reader.
	Message *message.Message
}

type Format struct{}

func New() *Format {
	return &Format{}
}

func (format *Format) Name() string {
	return Name
}

// A multipart body can only be told apart by its boundary, so Batch is reported when
// the content type carries one.
func (format *Format) DetectPayloadKinds(
	ctx context.Context, info *formats.MessageInfo, possible []payload.Kind,
) ([]payload.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if info.MediaType == nil {
		return nil, nil
	}
	if _, ok := info.MediaType.Param("boundary"); !ok {
		return nil, nil
	}
	for _, kind := range possible {
		if kind == payload.Batch {
			return []payload.Kind{payload.Batch}, nil
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
	boundary, err := boundaryOf(info.MediaType)
	if err != nil {
		return nil, err
	}
	return &inputContext{info: info, boundary: boundary}, nil
}

func boundaryOf(mediaType *mimetype.MediaType) (string, error) {
	if mediaType == nil {
		return "", odataerrors.ContentTypeInvalid.Newf(odataerrors.MsgMissingBoundary, "")
	}
	boundary, ok := mediaType.Param("boundary")
	if !ok || boundary == "" {
		return "", odataerrors.ContentTypeInvalid.Newf(
			odataerrors.MsgMissingBoundary, mediaType.String(),
		)
	}
	return boundary, nil
}

type inputContext struct {
	info     *formats.MessageInfo
	boundary string
}

func (batchContext *inputContext) CreateReader(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (formats.ItemReader, error) {
	if kind != payload.Batch {
		return nil, formats.UnsupportedKind(Name, kind)
	}
	maxParts := 0
	if batchContext.info.Settings != nil {
		maxParts = batchContext.info.Settings.Quotas.MaxPartsPerBatch
	}
	return &Reader{
		isResponse: batchContext.info.IsResponse,
		maxParts:   maxParts,
		logger:     batchContext.info.GetLogger(),
		levels: []level{{
			reader: multipart.NewReader(batchContext.info.Stream, batchContext.boundary),
		}},
	}, nil
}

func (batchContext *inputContext) ReadValue(
	ctx context.Context, kind payload.Kind, options formats.ReadOptions,
) (interface{}, error) {
	return nil, formats.UnsupportedKind(Name, kind)
}

func (batchContext *inputContext) Close() error {
	return nil
}

type level struct {
	reader    *multipart.Reader
	changeSet string
}

/*
Reader yields the operations of a batch as *Operation values, entering change sets as
they appear. It reads the body strictly forward, so each operation's body is copied
before the next part is read.
*/
type Reader struct {
	isResponse bool
	maxParts   int
	logger     *zap.Logger

	levels []level
	parts  int
}

func (reader *Reader) Read(ctx context.Context) (interface{}, error) {
	for len(reader.levels) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := reader.levels[len(reader.levels)-1]
		part, err := current.reader.NextPart()
		if err == io.EOF {
			reader.levels = reader.levels[:len(reader.levels)-1]
			continue
		}
		if err != nil {
			return nil, formats.Malformed(payload.Batch, err)
		}

		partType, err := mimetype.Parse(part.Header.Get("Content-Type"))
		if err != nil {
			return nil, formats.Malformed(payload.Batch, err)
		}

		if partType.MimeType() == mimetype.MULTIPARTMIXED {
			boundary, err := boundaryOf(partType)
			if err != nil {
				return nil, err
			}
			reader.logger.Debug("entering change set", zap.String("boundary", boundary))
			reader.levels = append(reader.levels, level{
				reader:    multipart.NewReader(part, boundary),
				changeSet: boundary,
			})
			continue
		}

		reader.parts++
		if reader.maxParts > 0 && reader.parts > reader.maxParts {
			return nil, odataerrors.BatchPartsExceeded.Newf(
				odataerrors.MsgBatchPartsExceeded, reader.maxParts,
			)
		}

		operation, err := reader.readOperation(part, partType)
		if err != nil {
			return nil, err
		}
		operation.ChangeSet = current.changeSet
		return operation, nil
	}
	return nil, io.EOF
}

func (reader *Reader) readOperation(
	part *multipart.Part, partType *mimetype.MediaType,
) (*Operation, error) {
	if partType.MimeType() != mimetype.HTTP {
		return nil, formats.Malformed(
			payload.Batch,
			xerrors.Errorf("batch part has content type %q, expected application/http", partType),
		)
	}

	operation := &Operation{ContentID: part.Header.Get("Content-ID")}
	buffered := bufio.NewReader(part)

	if reader.isResponse {
		response, err := http.ReadResponse(buffered, nil)
		if err != nil {
			return nil, formats.Malformed(payload.Batch, err)
		}
		body, err := readBody(response.Body)
		if err != nil {
			return nil, err
		}
		operation.StatusCode = response.StatusCode
		operation.Message = message.NewResponse(withLength(response.Header, body), body)
		return operation, nil
	}

	method, target, header, err := readRequestHead(buffered)
	if err != nil {
		return nil, formats.Malformed(payload.Batch, err)
	}
	body, err := ioutil.ReadAll(buffered)
	if err != nil {
		return nil, formats.Malformed(payload.Batch, err)
	}
	body = bytes.TrimRight(body, "\r\n")
	operation.Method = method
	operation.URL = target
	operation.Message = message.NewRequest(withLength(header, body), body)
	return operation, nil
}

// Reads the request line and headers of a request operation. http.ReadRequest rejects
// the service-relative URLs batch requests use.
func readRequestHead(reader *bufio.Reader) (method, target string, header http.Header, err error) {
	head := textproto.NewReader(reader)
	line, err := head.ReadLine()
	if err != nil {
		return "", "", nil, err
	}
	fields := strings.Fields(line)
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return "", "", nil, xerrors.Errorf("malformed request line %q", line)
	}
	mimeHeader, err := head.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return "", "", nil, err
	}
	return fields[0], fields[1], http.Header(mimeHeader), nil
}

func readBody(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	content, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, formats.Malformed(payload.Batch, err)
	}
	return bytes.TrimRight(content, "\r\n"), nil
}

// Sets Content-Length to the copied body length so nested readers can tell empty
// bodies apart.
func withLength(header http.Header, body []byte) http.Header {
	header = header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return header
}
