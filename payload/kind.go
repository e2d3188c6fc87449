// Payload kinds, versions and detection results shared by readers and formats.
package payload

import (
	"golang.org/x/xerrors"
	"sort"
	"strconv"
	"strings"
)

/*
Kind enumerates the logical category of an OData payload, independent of the wire
format used to encode it.

The ordinal value of each kind is significant: detection results are always sorted
ascending by ordinal so callers that branch on the first result see a stable order.
*/
type Kind int

const (
	ResourceSet Kind = iota
	Resource
	Property
	EntityReferenceLink
	EntityReferenceLinks
	Value
	BinaryValue
	Collection
	ServiceDocument
	MetadataDocument
	Error
	Batch
	Parameter
	Delta
	Asynchronous
	// Unsupported is a sentinel and never a valid negotiation target.
	Unsupported
)

var kindNames = map[Kind]string{
	ResourceSet:          "ResourceSet",
	Resource:             "Resource",
	Property:             "Property",
	EntityReferenceLink:  "EntityReferenceLink",
	EntityReferenceLinks: "EntityReferenceLinks",
	Value:                "Value",
	BinaryValue:          "BinaryValue",
	Collection:           "Collection",
	ServiceDocument:      "ServiceDocument",
	MetadataDocument:     "MetadataDocument",
	Error:                "Error",
	Batch:                "Batch",
	Parameter:            "Parameter",
	Delta:                "Delta",
	Asynchronous:         "Asynchronous",
	Unsupported:          "Unsupported",
}

// AllKinds lists every valid kind in ordinal order. Unsupported is not included.
var AllKinds = []Kind{
	ResourceSet,
	Resource,
	Property,
	EntityReferenceLink,
	EntityReferenceLinks,
	Value,
	BinaryValue,
	Collection,
	ServiceDocument,
	MetadataDocument,
	Error,
	Batch,
	Parameter,
	Delta,
	Asynchronous,
}

func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(kind)) + ")"
}

// Parses a kind from its name. Ignores case.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if strings.EqualFold(kindName, name) && kind != Unsupported {
			return kind, nil
		}
	}
	return Unsupported, xerrors.Errorf("unknown payload kind %q", name)
}

/*
SupportedIn reports whether the kind may appear in a request or a response.

• Error, ServiceDocument, MetadataDocument and EntityReferenceLinks are response only.

• Parameter is request only.

• Everything else is allowed in both directions.
*/
func (kind Kind) SupportedIn(isResponse bool) bool {
	switch kind {
	case EntityReferenceLinks, Error, ServiceDocument, MetadataDocument:
		return isResponse
	case Parameter:
		return !isResponse
	case Unsupported:
		return false
	default:
		return true
	}
}

// Joins kind names for use in error messages.
func JoinKinds(kinds []Kind) string {
	names := make([]string, len(kinds))
	for index, kind := range kinds {
		names[index] = kind.String()
	}
	return strings.Join(names, ", ")
}

// DetectionResult is one (kind, format) pair found while negotiating a payload.
type DetectionResult struct {
	Kind Kind
	// Name of the format which can read this kind.
	Format string
}

func (result DetectionResult) String() string {
	return result.Kind.String() + "/" + result.Format
}

// DetectionResults is an ordered set of detection results holding at most one
// result per kind.
type DetectionResults struct {
	results []DetectionResult
	byKind  map[Kind]int
}

// Adds a result. Adding a second result for a kind which is already present is a
// contract violation and is returned as an error.
func (set *DetectionResults) Add(result DetectionResult) error {
	if set.byKind == nil {
		set.byKind = make(map[Kind]int)
	}
	if existing, ok := set.byKind[result.Kind]; ok {
		return xerrors.Errorf(
			"payload kind %v detected twice (by %q and %q)",
			result.Kind,
			set.results[existing].Format,
			result.Format,
		)
	}
	set.byKind[result.Kind] = len(set.results)
	set.results = append(set.results, result)
	return nil
}

// Whether the set already holds a result for kind.
func (set *DetectionResults) Has(kind Kind) bool {
	_, ok := set.byKind[kind]
	return ok
}

// Returns the result for kind, if any.
func (set *DetectionResults) Get(kind Kind) (DetectionResult, bool) {
	index, ok := set.byKind[kind]
	if !ok {
		return DetectionResult{}, false
	}
	return set.results[index], true
}

func (set *DetectionResults) Len() int {
	return len(set.results)
}

// Returns a copy of the results in insertion order.
func (set *DetectionResults) Results() []DetectionResult {
	return append([]DetectionResult(nil), set.results...)
}

// Returns a copy of the results sorted ascending by kind ordinal.
func (set *DetectionResults) Sorted() []DetectionResult {
	sorted := set.Results()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Kind < sorted[j].Kind
	})
	return sorted
}
