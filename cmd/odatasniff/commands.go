package main

import (
	"context"
	"github.com/dustin/go-humanize"
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/formats/asyncformat"
	"github.com/illuscio-dev/odatareader-go/formats/batchformat"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/messagereader"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/illuscio-dev/odatareader-go/settings"
	"github.com/ugorji/go/codec"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Flags describing the message to read, shared by every command.
type MessageFlags struct {
	File        string   `arg:"" type:"existingfile" help:"File holding the message body."`
	ContentType string   `short:"t" help:"Content-Type of the message. 'json', 'xml', 'text' and 'binary' are accepted as shorthands."`
	Request     bool     `help:"Read the message as a request rather than a response."`
	Header      []string `short:"H" sep:"none" help:"Extra header as 'Name: value'. Repeatable."`
	Settings    string   `type:"existingfile" help:"Reader settings yaml file."`
}

func (flags *MessageFlags) loadSettings(logger *zap.Logger) (*settings.Settings, error) {
	readerSettings := settings.Default()
	if flags.Settings != "" {
		file, err := os.Open(flags.Settings)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		readerSettings, err = settings.Load(file)
		if err != nil {
			return nil, err
		}
	}
	readerSettings.Logger = logger
	return readerSettings, nil
}

func (flags *MessageFlags) header(size int64) (http.Header, error) {
	header := http.Header{}
	for _, raw := range flags.Header {
		split := strings.SplitN(raw, ":", 2)
		if len(split) != 2 || strings.TrimSpace(split[0]) == "" {
			return nil, xerrors.Errorf("header %q is not of the form 'Name: value'", raw)
		}
		header.Add(strings.TrimSpace(split[0]), strings.TrimSpace(split[1]))
	}
	if flags.ContentType != "" {
		header.Set(message.HeaderContentType, expandContentType(flags.ContentType))
	}
	header.Set(message.HeaderContentLength, strconv.FormatInt(size, 10))
	return header, nil
}

// Shorthands without a slash, such as "json", are expanded to their full mime type.
// Anything else is passed through untouched so its parameters are kept.
func expandContentType(contentType string) string {
	if strings.Contains(contentType, "/") {
		return contentType
	}
	return string(mimetype.FromString(strings.TrimSpace(contentType)))
}

// Opens the file as a message and wraps it in a reader. Closing the reader closes the
// file.
func (flags *MessageFlags) open(logger *zap.Logger) (*messagereader.Reader, error) {
	readerSettings, err := flags.loadSettings(logger)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(flags.File)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	header, err := flags.header(stat.Size())
	if err != nil {
		file.Close()
		return nil, err
	}

	direction := message.Response
	if flags.Request {
		direction = message.Request
	}
	logger.Debug(
		"opened message",
		zap.String("file", flags.File),
		zap.String("size", humanize.Bytes(uint64(stat.Size()))),
		zap.Stringer("direction", direction),
		zap.String("mime_type", string(mimetype.FromHeader(header))),
	)

	reader, err := messagereader.New(
		message.New(direction, header, file), messagereader.WithSettings(readerSettings),
	)
	if err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

func writeJSON(out io.Writer, value interface{}) error {
	handle := &codec.JsonHandle{}
	handle.Indent = 2
	handle.HTMLCharsAsIs = true
	if err := codec.NewEncoder(out, handle).Encode(value); err != nil {
		return err
	}
	_, err := io.WriteString(out, "\n")
	return err
}

type detectionOutput struct {
	Kind   string `codec:"kind"`
	Format string `codec:"format"`
}

type DetectCommand struct {
	MessageFlags
	Parallel bool `help:"Run format detectors concurrently."`
}

func (command *DetectCommand) Run(
	ctx context.Context, logger *zap.Logger, out io.Writer,
) (err error) {
	reader, err := command.open(logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := reader.Close(); err == nil {
			err = closeErr
		}
	}()

	var results []payload.DetectionResult
	if command.Parallel {
		results, err = reader.Async().DetectPayloadKind(ctx).Await(ctx)
	} else {
		results, err = reader.DetectPayloadKind(ctx)
	}
	if err != nil {
		return err
	}

	output := make([]detectionOutput, len(results))
	for index, result := range results {
		output[index] = detectionOutput{Kind: result.Kind.String(), Format: result.Format}
	}
	return writeJSON(out, output)
}

type ReadCommand struct {
	MessageFlags
	Kind string `required:"" short:"k" help:"Payload kind to read, e.g. ResourceSet or Error."`
}

func (command *ReadCommand) Run(
	ctx context.Context, logger *zap.Logger, out io.Writer,
) (err error) {
	kind, err := payload.ParseKind(command.Kind)
	if err != nil {
		return err
	}

	reader, err := command.open(logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := reader.Close(); err == nil {
			err = closeErr
		}
	}()

	value, err := readKind(ctx, reader, kind)
	if err != nil {
		return err
	}
	return writeJSON(out, value)
}

// Dispatches to the reader method serving kind.
func readKind(
	ctx context.Context, reader *messagereader.Reader, kind payload.Kind,
) (interface{}, error) {
	switch kind {
	case payload.Resource, payload.ResourceSet, payload.Delta,
		payload.Collection, payload.Parameter:
		items, err := reader.CreateReader(ctx, kind, formats.ReadOptions{})
		if err != nil {
			return nil, err
		}
		return drain(ctx, items, func(item interface{}) (interface{}, error) {
			return item, nil
		})
	case payload.Batch:
		operations, err := reader.CreateBatchReader(ctx)
		if err != nil {
			return nil, err
		}
		return drain(ctx, operations, func(item interface{}) (interface{}, error) {
			operation := item.(*batchformat.Operation)
			summary, err := summarize(ctx, operation.Message)
			if err != nil {
				return nil, err
			}
			summary.ContentID = operation.ContentID
			summary.ChangeSet = operation.ChangeSet
			summary.Method = operation.Method
			summary.URL = operation.URL
			summary.StatusCode = operation.StatusCode
			return summary, nil
		})
	case payload.Asynchronous:
		response, err := reader.CreateAsynchronousReader(ctx)
		if err != nil {
			return nil, err
		}
		return summarizeAsync(ctx, response)
	case payload.ServiceDocument:
		return reader.ReadServiceDocument(ctx)
	case payload.MetadataDocument:
		document, err := reader.ReadMetadataDocument(ctx)
		if err != nil {
			return nil, err
		}
		document.Raw = nil
		return document, nil
	case payload.Error:
		return reader.ReadError(ctx)
	case payload.Property:
		return reader.ReadProperty(ctx, formats.ReadOptions{})
	case payload.EntityReferenceLink:
		return reader.ReadEntityReferenceLink(ctx)
	case payload.EntityReferenceLinks:
		return reader.ReadEntityReferenceLinks(ctx)
	case payload.BinaryValue:
		return reader.ReadValue(ctx, edm.Primitive("Edm.Binary"))
	default:
		return reader.ReadValue(ctx, nil)
	}
}

func drain(
	ctx context.Context,
	items formats.ItemReader,
	convert func(item interface{}) (interface{}, error),
) ([]interface{}, error) {
	output := make([]interface{}, 0)
	for {
		item, err := items.Read(ctx)
		if err == io.EOF {
			return output, nil
		}
		if err != nil {
			return nil, err
		}
		converted, err := convert(item)
		if err != nil {
			return nil, err
		}
		output = append(output, converted)
	}
}

// Printable form of a nested message.
type messageSummary struct {
	ContentID  string `codec:"content_id,omitempty"`
	ChangeSet  string `codec:"change_set,omitempty"`
	Method     string `codec:"method,omitempty"`
	URL        string `codec:"url,omitempty"`
	StatusCode int    `codec:"status_code,omitempty"`

	Headers map[string]string `codec:"headers"`
	Size    string            `codec:"size"`
	Body    string            `codec:"body,omitempty"`
}

func summarize(ctx context.Context, nested *message.Message) (*messageSummary, error) {
	stream, err := nested.GetStream(ctx)
	if err != nil {
		return nil, err
	}
	body, err := ioutil.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	summary := &messageSummary{
		Headers: make(map[string]string),
		Size:    humanize.Bytes(uint64(len(body))),
		Body:    string(body),
	}
	for name := range nested.Headers() {
		summary.Headers[name] = nested.Header(name)
	}
	return summary, nil
}

func summarizeAsync(
	ctx context.Context, response *asyncformat.Response,
) (*messageSummary, error) {
	summary, err := summarize(ctx, response.Message)
	if err != nil {
		return nil, err
	}
	summary.StatusCode = response.StatusCode
	return summary, nil
}
