package odataerrors

// Message catalog. Every user-visible reader message is declared here so wording stays
// consistent and can be swapped out in one place.
const (
	MsgReaderDisposed      = "the message reader has already been disposed"
	MsgReaderAlreadyUsed   = "a read method has already been called on this message reader; a message reader can only read a single payload (state: %v)"
	MsgDetectionAlreadyRun = "DetectPayloadKind has already been called on this message reader; it can only be called once"
	MsgDetectionInProgress = "payload kind detection is running; no read method can be called until it completes"
	MsgModeMismatch        = "the message reader is in %v mode and cannot serve a %v call"
	MsgFormatNotNegotiated = "the format is only available after a read method has negotiated the content type"

	MsgContentTypeMissing    = "no Content-Type header was found on a message with a non-empty body (Content-Length: %d)"
	MsgContentTypeInvalid    = "the Content-Type header %q could not be parsed"
	MsgContentTypeWildcard   = "the Content-Type header %q contains a wildcard, which is not allowed when reading a payload"
	MsgContentTypeNotMatched = "a supported MIME type could not be found that matches the content type %q of the response; requested payload kinds: %v"
	MsgCharsetUnsupported    = "the character set %q is not supported"

	MsgDirectionResponseOnly = "a %v payload can only be read from a response"
	MsgDirectionRequestOnly  = "a %v payload can only be read from a request"

	MsgNoKinds                   = "at least one acceptable payload kind is required"
	MsgUnsupportedKind           = "the Unsupported payload kind cannot be requested"
	MsgOptionsWithoutModel       = "the %v argument can only be specified when a user model is available"
	MsgExpectedTypeNotStructured = "the expected type %q must be an entity or complex type"
	MsgExpectedTypeNotCollection = "the expected type %q must be a collection type"
	MsgNotAReaderKind            = "a reader cannot be created for payload kind %v"
	MsgNilMessage                = "a message is required"

	MsgBaseURINotAbsolute        = "the base URI %q must be absolute"
	MsgCustomTypeResolverRequest = "a client custom type resolver can only be used when reading responses"
	MsgNegativeQuota             = "the %v quota must not be negative"
	MsgUnknownMaxVersion         = "the maximum protocol version %v is not supported"

	MsgProtocolVersionExceeded    = "the OData-Version %v of the message is higher than the maximum protocol version %v allowed by the reader settings"
	MsgProtocolVersionUnsupported = "the OData-Version header %q is not supported"

	MsgDetectedTwice       = "payload kind %v was detected more than once"
	MsgFormatNotRegistered = "format %q is not registered with the resolver"

	MsgMalformedPayload       = "the %v payload could not be read: %v"
	MsgTypeMismatch           = "the payload type %q does not match the expected type %q"
	MsgUnsupportedPayloadKind = "the %q format cannot read payload kind %v"
	MsgMissingBoundary        = "the multipart content type %q has no boundary parameter"

	MsgMessageSizeExceeded  = "the message body exceeds the maximum message size of %v"
	MsgBatchPartsExceeded   = "the batch contains more than the maximum of %d parts"
	MsgNestingDepthExceeded = "the payload nesting depth exceeds the maximum of %d"
)
