package messagereader

import (
	"github.com/illuscio-dev/odatareader-go/formats"
	"github.com/illuscio-dev/odatareader-go/formats/asyncformat"
	"github.com/illuscio-dev/odatareader-go/formats/batchformat"
	"github.com/illuscio-dev/odatareader-go/formats/jsonformat"
	"github.com/illuscio-dev/odatareader-go/formats/metadataformat"
	"github.com/illuscio-dev/odatareader-go/formats/rawformat"
	"github.com/illuscio-dev/odatareader-go/mimetype"
	"github.com/illuscio-dev/odatareader-go/payload"
	"sync"
)

// Kinds read from application/json by the JSON format.
var jsonKinds = []payload.Kind{
	payload.ResourceSet,
	payload.Resource,
	payload.Property,
	payload.EntityReferenceLink,
	payload.EntityReferenceLinks,
	payload.Collection,
	payload.ServiceDocument,
	payload.Error,
	payload.Parameter,
	payload.Delta,
}

/*
NewDefaultResolver returns a resolver with every format of this module registered:

• application/json: the JSON format for resources, resource sets, deltas, properties,
collections, parameters, entity reference links, service documents and errors, and
the metadata format for CSDL JSON.

• application/xml: the metadata format for CSDL XML.

• text/plain and application/octet-stream: the raw format for Value and BinaryValue.

• multipart/mixed: the batch format.

• application/http: the async format.
*/
func NewDefaultResolver() *formats.MediaTypeResolver {
	resolver := formats.NewMediaTypeResolver()

	jsonFormat := jsonformat.New()
	for _, kind := range jsonKinds {
		resolver.Register(kind, string(mimetype.JSON), jsonFormat)
	}

	rawFormat := rawformat.New()
	resolver.Register(payload.Value, string(mimetype.TEXT), rawFormat)
	resolver.Register(payload.BinaryValue, string(mimetype.BINARY), rawFormat)

	resolver.Register(payload.Batch, string(mimetype.MULTIPARTMIXED), batchformat.New())
	resolver.Register(payload.Asynchronous, string(mimetype.HTTP), asyncformat.New())

	metadataFormat := metadataformat.New()
	resolver.Register(payload.MetadataDocument, string(mimetype.XML), metadataFormat)
	resolver.Register(payload.MetadataDocument, string(mimetype.JSON), metadataFormat)

	return resolver
}

var (
	defaultResolver     *formats.MediaTypeResolver
	defaultResolverOnce sync.Once
)

// Returns a resolver built by NewDefaultResolver, shared by every reader created
// without WithResolver.
func DefaultResolver() *formats.MediaTypeResolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewDefaultResolver()
	})
	return defaultResolver
}
