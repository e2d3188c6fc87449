package formats

import (
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/payload"
	"sync"
)

// SupportedMediaType pairs a media type a kind can be read from with the format that
// reads it.
type SupportedMediaType struct {
	MediaType *mimetype.MediaType
	Format    Format
}

// Resolution is the outcome of matching a content type against acceptable kinds.
type Resolution struct {
	Kind      payload.Kind
	Format    Format
	MediaType *mimetype.MediaType
}

/*
MediaTypeResolver maps payload kinds to the media types they can be read from, and
each media type to a format. Registration order matters: for each kind, media types
are tried in the order they were registered and the first match wins.

The resolver is safe for concurrent use, so one resolver can serve every reader of a
service.
*/
type MediaTypeResolver struct {
	lock sync.RWMutex
	// Kind:supported media types mapping
	table map[payload.Kind][]SupportedMediaType
	// List of all registered formats, in registration order. Used for detection.
	formats []Format
}

// Returns a resolver without any registrations.
func NewMediaTypeResolver() *MediaTypeResolver {
	return &MediaTypeResolver{
		table: make(map[payload.Kind][]SupportedMediaType),
	}
}

// Registers format as able to read kind from mediaType. Panics if mediaType cannot
// be parsed, as registrations are static.
func (resolver *MediaTypeResolver) Register(
	kind payload.Kind, mediaType string, format Format,
) {
	parsed := mimetype.MustParse(mediaType)

	resolver.lock.Lock()
	defer resolver.lock.Unlock()

	resolver.table[kind] = append(
		resolver.table[kind],
		SupportedMediaType{MediaType: parsed, Format: format},
	)

	for _, registered := range resolver.formats {
		if registered.Name() == format.Name() {
			return
		}
	}
	resolver.formats = append(resolver.formats, format)
}

// Returns the media types kind can be read from, in registration order.
func (resolver *MediaTypeResolver) SupportedMediaTypes(
	kind payload.Kind,
) []SupportedMediaType {
	resolver.lock.RLock()
	defer resolver.lock.RUnlock()
	return append([]SupportedMediaType(nil), resolver.table[kind]...)
}

// Returns every registered format.
func (resolver *MediaTypeResolver) Formats() []Format {
	resolver.lock.RLock()
	defer resolver.lock.RUnlock()
	return append([]Format(nil), resolver.formats...)
}

// Returns the registered format with the name, or nil.
func (resolver *MediaTypeResolver) Format(name string) Format {
	for _, format := range resolver.Formats() {
		if format.Name() == name {
			return format
		}
	}
	return nil
}

// Returns true if at least one media type is registered for kind.
func (resolver *MediaTypeResolver) Handles(kind payload.Kind) bool {
	resolver.lock.RLock()
	defer resolver.lock.RUnlock()
	return len(resolver.table[kind]) > 0
}

/*
Resolve walks kinds in order and, for each, the media types registered for it. The
first supported media type contentType matches decides the kind and the format. ok is
false when nothing matches.
*/
func (resolver *MediaTypeResolver) Resolve(
	contentType *mimetype.MediaType, kinds []payload.Kind,
) (resolution Resolution, ok bool) {
	for _, kind := range kinds {
		for _, supported := range resolver.SupportedMediaTypes(kind) {
			if contentType.Matches(supported.MediaType) {
				return Resolution{
					Kind:      kind,
					Format:    supported.Format,
					MediaType: contentType,
				}, true
			}
		}
	}
	return Resolution{}, false
}

// Returns every (kind, format) pair contentType matches, one per kind in kind ordinal
// order, keeping only kinds accepted by filter.
func (resolver *MediaTypeResolver) KindsFor(
	contentType *mimetype.MediaType, filter func(payload.Kind) bool,
) []payload.DetectionResult {
	var results []payload.DetectionResult
	for _, kind := range payload.AllKinds {
		if filter != nil && !filter(kind) {
			continue
		}
		if resolution, ok := resolver.Resolve(contentType, []payload.Kind{kind}); ok {
			results = append(results, payload.DetectionResult{
				Kind:   kind,
				Format: resolution.Format.Name(),
			})
		}
	}
	return results
}
