/*
Package messagereader is the entry point for reading OData payloads.

A Reader wraps one message, negotiates which format and payload kind its content type
stands for, and hands the body to that format. A Reader reads exactly one payload.

Usage

	reader, err := messagereader.New(
		message.FromHTTPResponse(response),
		messagereader.WithModel(model),
	)
	if err != nil {
		return err
	}
	defer reader.Close()

	resources, err := reader.CreateReader(ctx, payload.ResourceSet, formats.ReadOptions{})

# Detection

When the caller does not know which kind of payload to expect, DetectPayloadKind lists
the kinds the content type allows. If the content type allows more than one, the body
is buffered and each candidate format inspects it. Detection can be followed by a
single read, which sees the whole body.

# Calling Conventions

Every operation blocks until done. Reader.Async returns a view of the same reader whose
operations return an async.Future instead. A reader serves one convention only: the
first call commits it, and a call of the other kind fails with a ModeMismatch error.
*/
package messagereader

import (
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/message"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/odataerrors"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/illuscio-dev/odatareader-go/settings"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Numeric value of payload.MaxVersion.
const maxKnownVersion = 4.01

// MessageInfoProvider supplies the MessageInfo instance a reader fills in, for callers
// which share one instance with their own components. Returning nil makes the reader
// allocate its own.
type MessageInfoProvider func() *formats.MessageInfo

// Option configures a Reader.
type Option func(reader *Reader)

// Settings for the reader. The value is copied; Default() is used when not given.
func WithSettings(readerSettings *settings.Settings) Option {
	return func(reader *Reader) {
		if readerSettings != nil {
			reader.settings = readerSettings.Clone()
		}
	}
}

// Model to read against. Read options can only be used with a user model.
func WithModel(model edm.Model) Option {
	return func(reader *Reader) {
		reader.model = model
	}
}

// Resolver mapping content types to formats. DefaultResolver() is used when not given.
func WithResolver(resolver *formats.MediaTypeResolver) Option {
	return func(reader *Reader) {
		reader.resolver = resolver
	}
}

// Provider asked for the message info handed to formats. The reader builds its own when
// not given.
func WithMessageInfoProvider(provider MessageInfoProvider) Option {
	return func(reader *Reader) {
		reader.infoProvider = provider
	}
}

// Converter formats use to resolve relative URLs in payloads.
func WithURLConverter(converter formats.URLConverter) Option {
	return func(reader *Reader) {
		reader.urlConverter = converter
	}
}

// Reader reads a single payload from a message. Create one with New.
type Reader struct {
	id       uuid.UUID
	message  *message.Message
	settings *settings.Settings
	model    edm.Model
	resolver *formats.MediaTypeResolver
	logger   *zap.Logger

	urlConverter formats.URLConverter
	infoProvider MessageInfoProvider

	guard guard

	// Guards the negotiation results below.
	lock sync.Mutex

	resolution   *formats.Resolution
	mediaType    *mimetype.MediaType
	charset      string
	encoding     encoding.Encoding
	info         *formats.MessageInfo
	inputContext formats.InputContext
}

/*
New creates a reader for msg.

Construction fails when:

• the settings are not valid for the message direction.

• the OData-Version header is not a version this module knows, or is higher than
Settings.MaxProtocolVersion.

When reading a response and Settings.AnnotationFilter is empty, the filter is taken from
the odata.include-annotations preference of the Preference-Applied header.
Settings.Quotas.MaxReceivedMessageSize is applied to the message body.
*/
func New(msg *message.Message, options ...Option) (*Reader, error) {
	if msg == nil {
		return nil, odataerrors.InvalidArgument.Newf(odataerrors.MsgNilMessage)
	}

	reader := &Reader{
		id:      uuid.NewV4(),
		message: msg,
	}
	for _, option := range options {
		option(reader)
	}

	if reader.settings == nil {
		reader.settings = settings.Default()
	}
	if reader.model == nil {
		reader.model = edm.CoreModel()
	}
	if reader.resolver == nil {
		reader.resolver = DefaultResolver()
	}
	reader.logger = reader.settings.GetLogger().Named("messagereader").With(
		zap.String("reader_id", reader.id.String()),
		zap.Stringer("direction", msg.Direction()),
	)

	if err := reader.settings.Validate(msg.IsResponse()); err != nil {
		return nil, err
	}
	if err := reader.verifyProtocolVersion(); err != nil {
		return nil, err
	}

	if msg.IsResponse() && reader.settings.AnnotationFilter == "" {
		reader.settings.AnnotationFilter = settings.IncludeAnnotationsFromPreference(
			msg.Header(message.HeaderPreferenceApplied),
		)
	}
	msg.SetMaxSize(reader.settings.Quotas.MaxReceivedMessageSize)

	return reader, nil
}

// Returns the settings the reader uses, after defaults and header seeding.
func (reader *Reader) Settings() *settings.Settings {
	return reader.settings
}

// Returns the format negotiated by the read method. Fails before negotiation.
func (reader *Reader) Format() (formats.Format, error) {
	reader.lock.Lock()
	defer reader.lock.Unlock()

	if reader.resolution == nil {
		return nil, odataerrors.FormatNotNegotiated.Newf(odataerrors.MsgFormatNotNegotiated)
	}
	return reader.resolution.Format, nil
}

/*
GetOrCreateMessageInfo returns the MessageInfo handed to formats. It is computed on
the first call from the negotiation results and stream; later calls return that same
instance. A later call for a different stream or calling convention still gets the
first instance, and logs a warning.
*/
func (reader *Reader) GetOrCreateMessageInfo(
	stream io.Reader, isAsync bool,
) *formats.MessageInfo {
	reader.lock.Lock()
	defer reader.lock.Unlock()

	if reader.info != nil {
		if !sameStream(reader.info.Stream, stream) || reader.info.IsAsync != isAsync {
			reader.logger.Warn(
				"message info was already computed; returning the first instance",
				zap.Bool("is_async", isAsync),
				zap.Bool("cached_is_async", reader.info.IsAsync),
			)
		}
		return reader.info
	}

	var info *formats.MessageInfo
	if reader.infoProvider != nil {
		info = reader.infoProvider()
	}
	if info == nil {
		info = &formats.MessageInfo{}
	}

	payloadKind := payload.Unsupported
	if reader.resolution != nil {
		payloadKind = reader.resolution.Kind
	}

	*info = formats.MessageInfo{
		Charset:      reader.charset,
		Encoding:     reader.encoding,
		IsResponse:   reader.message.IsResponse(),
		IsAsync:      isAsync,
		MediaType:    reader.mediaType,
		Model:        reader.model,
		URLConverter: reader.urlConverter,
		Settings:     reader.settings,
		Logger:       reader.logger,
		Stream:       stream,
		PayloadKind:  payloadKind,
	}
	reader.info = info
	return info
}

// Interface values holding uncomparable types panic on ==, so those are never equal.
func sameStream(cached io.Reader, stream io.Reader) bool {
	if cached == nil || stream == nil {
		return cached == stream
	}
	if !reflect.TypeOf(cached).Comparable() || !reflect.TypeOf(stream).Comparable() {
		return false
	}
	return cached == stream
}

/*
Close releases the reader. The input context created by the read is closed first.
Then, when Settings.EnableMessageStreamDisposal is set, the message body is closed: the
buffering stream if detection allocated one that no read consumed, otherwise the body
the input context read from.

Errors from each step are combined. Calling Close again does nothing.
*/
func (reader *Reader) Close() error {
	if !reader.guard.dispose() {
		return nil
	}

	reader.lock.Lock()
	inputContext := reader.inputContext
	reader.inputContext = nil
	reader.lock.Unlock()

	var err error
	if inputContext != nil {
		err = inputContext.Close()
	}

	if reader.settings.EnableMessageStreamDisposal {
		buffering := reader.message.BufferingStream()
		if buffering != nil && !buffering.Consumed() {
			err = multierr.Append(err, buffering.Close())
		} else if inputContext != nil {
			err = multierr.Append(err, reader.message.Close())
		}
	}

	if err != nil {
		reader.logger.Debug("reader closed with errors", zap.Error(err))
	}
	return err
}

func (reader *Reader) isAsync() bool {
	reader.guard.lock.Lock()
	defer reader.guard.lock.Unlock()
	return reader.guard.mode == modeAsync
}

/*
verifyProtocolVersion checks the OData-Version header against
Settings.MaxProtocolVersion. A missing header passes. A well-formed number above every
known version, such as "5.0", counts as exceeding the maximum rather than as malformed.
*/
func (reader *Reader) verifyProtocolVersion() error {
	header := reader.message.Header(message.HeaderODataVersion)
	if header == "" {
		return nil
	}

	maxVersion := reader.settings.MaxProtocolVersion
	version, err := payload.ParseVersion(header)
	if err != nil {
		number, numberErr := strconv.ParseFloat(strings.TrimSuffix(header, ";"), 64)
		if numberErr == nil && number > maxKnownVersion {
			return odataerrors.ProtocolVersionExceeded.Newf(
				odataerrors.MsgProtocolVersionExceeded, header, maxVersion,
			)
		}
		return odataerrors.ProtocolVersionUnsupported.Wrap(
			err, odataerrors.MsgProtocolVersionUnsupported, header,
		)
	}

	if version > maxVersion {
		return odataerrors.ProtocolVersionExceeded.Newf(
			odataerrors.MsgProtocolVersionExceeded, version, maxVersion,
		)
	}
	return nil
}
