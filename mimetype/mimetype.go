// Enumeration-like type for content mimetypes, plus media type parsing for
// Content-Type headers.
package mimetype

import (
	"golang.org/x/xerrors"
	"mime"
	"strings"
)

/*
MimeType is used to enumerate the default representation for content types which the
reader negotiates over. Non default MimeTypes can be used by wrapping a custom string:

	MimeType("image/png")
*/
type MimeType string

const (
	JSON           = MimeType("application/json")
	XML            = MimeType("application/xml")
	TEXT           = MimeType("text/plain")
	BINARY         = MimeType("application/octet-stream")
	MULTIPARTMIXED = MimeType("multipart/mixed")
	HTTP           = MimeType("application/http")
	// UNKNOWN is used when the incoming string is blank
	UNKNOWN = MimeType("")
)

// List of default mimeTypes which can be abbreviated to their subtype.
var structuredMimeTypes = []MimeType{JSON, XML}

// Interface for object used to get headers such as http.Request.Header or
// http.Response.Header
type headerFetcher interface {
	Get(string) string
}

// Extract content type from a message / request header. Parameters are dropped.
func FromHeader(headers headerFetcher) MimeType {
	contentType := headers.Get("Content-Type")
	if index := strings.IndexByte(contentType, ';'); index >= 0 {
		contentType = contentType[:index]
	}
	return FromString(strings.TrimSpace(contentType))
}

/*
Convert MimeType from a string. Ignores case. If the MimeType is a default type,
multiple formats are respected. For instance, all of the following will yield
"mimetype.JSON":

• "application/json"

• "application/JSON"

• "application/x-json"

• "json"

• "x-json"
*/
func FromString(incoming string) MimeType {
	incoming = strings.ToLower(incoming)

	if incoming == "" {
		return UNKNOWN
	}
	if incoming == "text/plain" || incoming == "text" {
		return TEXT
	}
	if incoming == "binary" || incoming == "octet-stream" {
		return BINARY
	}

	for _, mimeType := range structuredMimeTypes {
		subType := strings.Split(string(mimeType), "/")[1]
		if incoming == subType || strings.HasSuffix(incoming, "/"+subType) ||
			strings.HasSuffix(incoming, "x-"+subType) {
			return mimeType
		}
	}

	return MimeType(incoming)
}

/*
MediaType is a parsed Content-Type header value. Type, SubType and parameter names
are lower case; parameter values keep their case.
*/
type MediaType struct {
	Type       string
	SubType    string
	Parameters map[string]string
}

// Parse a media type such as `application/json;odata.metadata=minimal;charset=utf-8`.
func Parse(incoming string) (*MediaType, error) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return nil, xerrors.New("media type is empty")
	}

	fullType, params, err := mime.ParseMediaType(incoming)
	if err != nil {
		return nil, xerrors.Errorf("invalid media type %q: %w", incoming, err)
	}

	split := strings.SplitN(fullType, "/", 2)
	if len(split) != 2 || split[0] == "" || split[1] == "" {
		return nil, xerrors.Errorf("media type %q has no subtype", incoming)
	}

	return &MediaType{
		Type:       split[0],
		SubType:    split[1],
		Parameters: params,
	}, nil
}

// Like Parse, but panics on error. Used for building static tables.
func MustParse(incoming string) *MediaType {
	mediaType, err := Parse(incoming)
	if err != nil {
		panic(err)
	}
	return mediaType
}

// Returns the type/subtype pair without parameters.
func (mediaType *MediaType) MimeType() MimeType {
	return MimeType(mediaType.Type + "/" + mediaType.SubType)
}

// Returns true if the type or subtype is a wildcard.
func (mediaType *MediaType) HasWildcard() bool {
	return mediaType.Type == "*" || mediaType.SubType == "*"
}

// Returns the value of a parameter. Name lookup ignores case.
func (mediaType *MediaType) Param(name string) (string, bool) {
	value, ok := mediaType.Parameters[strings.ToLower(name)]
	return value, ok
}

// Returns the charset parameter, or an empty string when there is none.
func (mediaType *MediaType) Charset() string {
	charset, _ := mediaType.Param("charset")
	return charset
}

// Returns a copy with the charset parameter removed.
func (mediaType *MediaType) WithoutCharset() *MediaType {
	params := make(map[string]string, len(mediaType.Parameters))
	for name, value := range mediaType.Parameters {
		if name != "charset" {
			params[name] = value
		}
	}
	return &MediaType{
		Type:       mediaType.Type,
		SubType:    mediaType.SubType,
		Parameters: params,
	}
}

/*
Matches reports whether this media type can be read by a reader supporting the
supported media type. Type and subtype must be equal ignoring case, and every
parameter declared on supported must be present here with an equal value. Parameters
only present on this media type are ignored.
*/
func (mediaType *MediaType) Matches(supported *MediaType) bool {
	if !strings.EqualFold(mediaType.Type, supported.Type) ||
		!strings.EqualFold(mediaType.SubType, supported.SubType) {
		return false
	}
	for name, supportedValue := range supported.Parameters {
		value, ok := mediaType.Param(name)
		if !ok || !strings.EqualFold(value, supportedValue) {
			return false
		}
	}
	return true
}

func (mediaType *MediaType) String() string {
	// FormatMediaType sorts parameters, so the result is deterministic.
	return mime.FormatMediaType(string(mediaType.MimeType()), mediaType.Parameters)
}
