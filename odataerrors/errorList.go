package odataerrors

// Usage errors.

// The reader was used after Close.
var ReaderDisposed = NewErrorType("ReaderDisposed", 2000, CategoryUsage)

// A second read or create-reader call was made on a reader.
var ReaderAlreadyUsed = NewErrorType("ReaderAlreadyUsed", 2001, CategoryUsage)

// DetectPayloadKind was called twice.
var DetectionAlreadyRun = NewErrorType("DetectionAlreadyRun", 2002, CategoryUsage)

// A read was attempted while payload kind detection was buffering the body.
var DetectionInProgress = NewErrorType("DetectionInProgress", 2003, CategoryUsage)

// Synchronous and asynchronous calls were mixed on one reader.
var ModeMismatch = NewErrorType("ModeMismatch", 2004, CategoryUsage)

// Format was requested before content negotiation took place.
var FormatNotNegotiated = NewErrorType("FormatNotNegotiated", 2005, CategoryUsage)

// Content negotiation errors.

var ContentTypeMissing = NewErrorType(
	"ContentTypeMissing", 2100, CategoryContentNegotiation,
)

var ContentTypeInvalid = NewErrorType(
	"ContentTypeInvalid", 2101, CategoryContentNegotiation,
)

var ContentTypeWildcard = NewErrorType(
	"ContentTypeWildcard", 2102, CategoryContentNegotiation,
)

// No acceptable payload kind supports the content type.
var ContentTypeNotMatched = NewErrorType(
	"ContentTypeNotMatched", 2103, CategoryContentNegotiation,
)

var CharsetUnsupported = NewErrorType(
	"CharsetUnsupported", 2104, CategoryContentNegotiation,
)

// Payload kind requested on the wrong message direction.
var DirectionMismatch = NewErrorType("DirectionMismatch", 2200, CategoryDirection)

// Argument errors.

var InvalidArgument = NewErrorType("InvalidArgument", 2300, CategoryArgument)

var InvalidSettings = NewErrorType("InvalidSettings", 2301, CategoryArgument)

// Protocol version errors.

// The message declares a version newer than the configured maximum.
var ProtocolVersionExceeded = NewErrorType(
	"ProtocolVersionExceeded", 2400, CategoryProtocolVersion,
)

var ProtocolVersionUnsupported = NewErrorType(
	"ProtocolVersionUnsupported", 2401, CategoryProtocolVersion,
)

// A format reported the same payload kind twice, or a kind nobody asked about.
var DetectionContractViolation = NewErrorType(
	"DetectionContractViolation", 2500, CategoryDetection,
)

// Format errors.

var MalformedPayload = NewErrorType("MalformedPayload", 2600, CategoryFormat)

// The payload is well formed but is not what the caller asked for.
var UnexpectedPayload = NewErrorType("UnexpectedPayload", 2601, CategoryFormat)

// The negotiated format cannot produce the requested payload kind.
var UnsupportedPayloadKind = NewErrorType(
	"UnsupportedPayloadKind", 2602, CategoryFormat,
)

// Quota errors.

var MessageSizeExceeded = NewErrorType("MessageSizeExceeded", 2700, CategoryQuota)

var BatchPartsExceeded = NewErrorType("BatchPartsExceeded", 2701, CategoryQuota)

var NestingDepthExceeded = NewErrorType("NestingDepthExceeded", 2702, CategoryQuota)

// List of default ErrorType definitions.
var ErrorList = []*ErrorType{
	ReaderDisposed,
	ReaderAlreadyUsed,
	DetectionAlreadyRun,
	DetectionInProgress,
	ModeMismatch,
	FormatNotNegotiated,
	ContentTypeMissing,
	ContentTypeInvalid,
	ContentTypeWildcard,
	ContentTypeNotMatched,
	CharsetUnsupported,
	DirectionMismatch,
	InvalidArgument,
	InvalidSettings,
	ProtocolVersionExceeded,
	ProtocolVersionUnsupported,
	DetectionContractViolation,
	MalformedPayload,
	UnexpectedPayload,
	UnsupportedPayloadKind,
	MessageSizeExceeded,
	BatchPartsExceeded,
	NestingDepthExceeded,
}

// Used to make ErrorTypeCodeIndex.
func makeDefaultErrorCodeIndex() map[int]*ErrorType {
	index := make(map[int]*ErrorType)
	for _, errorType := range ErrorList {
		index[errorType.code] = errorType
	}
	return index
}

// Code:*ErrorType indexing of default errors.
var ErrorTypeCodeIndex = makeDefaultErrorCodeIndex()
