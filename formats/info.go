package formats

import (
	"github.com/illuscio-dev/odatareader-go/edm"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/payload"
	"github.com/illuscio-dev/odatareader-go/settings"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"io"
	"net/url"
)

// URLConverter lets callers rewrite URLs found in payloads, for example to map
// batch content id references. It returns nil to fall back to default resolution.
type URLConverter interface {
	ConvertPayloadURL(baseURI *url.URL, payloadURL *url.URL) *url.URL
}

/*
MessageInfo bundles what a format needs to read one message. The message reader fills
it exactly once.
*/
type MessageInfo struct {
	// Canonical charset name, e.g. "utf-8".
	Charset  string
	Encoding encoding.Encoding

	IsResponse bool
	IsAsync    bool

	MediaType *mimetype.MediaType

	// Model to read against. Never nil; the core model when the caller has none.
	Model        edm.Model
	URLConverter URLConverter
	Settings     *settings.Settings
	Logger       *zap.Logger

	// Body of the message.
	Stream io.Reader

	PayloadKind payload.Kind
}

// Returns Stream decoded to UTF-8 according to the message charset.
func (info *MessageInfo) TextStream() io.Reader {
	if info.Encoding == nil || info.Encoding == unicode.UTF8 ||
		info.Encoding == encoding.Nop {
		return info.Stream
	}
	return transform.NewReader(info.Stream, info.Encoding.NewDecoder())
}

// Returns the annotation filter configured in Settings.
func (info *MessageInfo) AnnotationFilter() *settings.AnnotationFilter {
	if info.Settings == nil {
		return settings.ParseAnnotationFilter("")
	}
	return settings.ParseAnnotationFilter(info.Settings.AnnotationFilter)
}

// Returns the logger, or a no-op logger when none is set.
func (info *MessageInfo) GetLogger() *zap.Logger {
	if info.Logger == nil {
		return zap.NewNop()
	}
	return info.Logger
}

/*
ResolveURL makes a payload URL absolute. The URLConverter gets the first chance; after
that a relative URL is resolved against the settings base URI. A URL which cannot be
parsed or resolved is returned unchanged.
*/
func (info *MessageInfo) ResolveURL(raw string) string {
	payloadURL, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	var baseURI *url.URL
	if info.Settings != nil {
		baseURI = info.Settings.ParsedBaseURI()
	}

	if info.URLConverter != nil {
		if converted := info.URLConverter.ConvertPayloadURL(baseURI, payloadURL); converted != nil {
			return converted.String()
		}
	}

	if payloadURL.IsAbs() || baseURI == nil {
		return raw
	}
	return baseURI.ResolveReference(payloadURL).String()
}
