package payload

// Values produced by input contexts. They carry just enough structure for callers to
// act on a payload without depending on a specific wire format.

// ResourceValue is a single entity or complex instance.
type ResourceValue struct {
	// Qualified type name from the payload, if present.
	TypeName string
	// Canonical id of the resource, if present.
	ID         string
	ETag       string
	Properties map[string]interface{}
	// Instance annotations which passed the annotation filter, keyed without the
	// leading "@".
	Annotations map[string]interface{}
}

// ResourceSetInfo carries the set-level information of a resource set or delta payload.
// Resources of the set are yielded separately by the item reader.
type ResourceSetInfo struct {
	Context  string
	Count    *int64
	NextLink string
	// Set for delta payloads only.
	DeltaLink   string
	Annotations map[string]interface{}
}

// DeletedResource is a removed entry within a delta payload.
type DeletedResource struct {
	ID     string
	Reason string
}

// CollectionStart opens a collection payload. Collection items follow it.
type CollectionStart struct {
	Context  string
	Count    *int64
	NextLink string
}

// ParameterValue is a single action parameter from a request body.
type ParameterValue struct {
	Name  string
	Value interface{}
}

// PropertyValue is a top-level property payload.
type PropertyValue struct {
	Name     string
	TypeName string
	Value    interface{}
}

type ReferenceLink struct {
	URL string
}

type ReferenceLinks struct {
	Links    []ReferenceLink
	Count    *int64
	NextLink string
}

// ErrorDetail is a nested entry of an error payload.
type ErrorDetail struct {
	Code    string
	Message string
	Target  string
}

// ErrorPayload is the body of an OData error response.
type ErrorPayload struct {
	Code       string
	Message    string
	Target     string
	Details    []ErrorDetail
	InnerError map[string]interface{}
}

// ServiceDocumentElement is one entry of a service document.
type ServiceDocumentElement struct {
	Name  string
	Kind  string
	URL   string
	Title string
}

type ServiceDocumentValue struct {
	Context     string
	EntitySets  []ServiceDocumentElement
	Singletons  []ServiceDocumentElement
	Functions   []ServiceDocumentElement
	ServiceDocs []ServiceDocumentElement
}

// MetadataDocumentValue is a CSDL document read from either XML or JSON.
type MetadataDocumentValue struct {
	Version string
	// Namespaces of all schemas in the document, in document order.
	Namespaces []string
	// Names of entity containers declared by the schemas.
	EntityContainers []string
	Raw              []byte
}
