package odataerrors

import (
	"fmt"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
	"runtime/debug"
	"strconv"
)

// Category groups error types by how a caller is expected to react to them.
type Category int

const (
	// Reader reused, disposed, or called in the wrong sequence.
	CategoryUsage Category = iota
	// Missing, malformed, wildcard or unmatched content type.
	CategoryContentNegotiation
	// Payload kind not allowed for the message direction.
	CategoryDirection
	// Invalid caller supplied argument or setting.
	CategoryArgument
	// OData-Version header problems.
	CategoryProtocolVersion
	// A kind detector broke its contract.
	CategoryDetection
	// Payload could not be read by the negotiated format.
	CategoryFormat
	// A configured quota was exceeded.
	CategoryQuota
)

var categoryNames = map[Category]string{
	CategoryUsage:              "Usage",
	CategoryContentNegotiation: "ContentNegotiation",
	CategoryDirection:          "Direction",
	CategoryArgument:           "Argument",
	CategoryProtocolVersion:    "ProtocolVersion",
	CategoryDetection:          "Detection",
	CategoryFormat:             "Format",
	CategoryQuota:              "Quota",
}

func (category Category) String() string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "Category(" + strconv.Itoa(int(category)) + ")"
}

/*
ErrorType defines a TYPE of error that the reader CAN return.

Each ErrorType has a unique Name and Code. Codes 2000-2999 are reserved for the reader
error definitions in this package.

Since types are declared as pointers, to protect against accidental mutation of the
error type by other packages, the underlying fields of this struct are private and
accessed through functions. Define new error types using NewErrorType()
*/
type ErrorType struct {
	// Unique human-readable name of the error type.
	name string

	// Unique number to identify the error type.
	code int

	category Category
}

// Returns an error type definition. Each definition should only be declared once.
func NewErrorType(name string, code int, category Category) *ErrorType {
	return &ErrorType{
		name:     name,
		code:     code,
		category: category,
	}
}

// Returns a new error of this type.
func (errorType *ErrorType) New(
	message string,
	errorData map[string]interface{},
	source error,
) *ODataError {
	return &ODataError{
		ErrorType:   errorType,
		Message:     message,
		ID:          uuid.NewV4(),
		ErrorData:   errorData,
		sourceErr:   source,
		sourceStack: debug.Stack(),
		frame:       xerrors.Caller(1),
	}
}

// Returns a new error of this type with a formatted message.
func (errorType *ErrorType) Newf(format string, args ...interface{}) *ODataError {
	oDataError := errorType.New(fmt.Sprintf(format, args...), nil, nil)
	oDataError.frame = xerrors.Caller(1)
	return oDataError
}

// Returns a new error of this type with a formatted message which wraps source.
func (errorType *ErrorType) Wrap(
	source error, format string, args ...interface{},
) *ODataError {
	oDataError := errorType.New(fmt.Sprintf(format, args...), nil, source)
	oDataError.frame = xerrors.Caller(1)
	return oDataError
}

// Unique human-readable name of the error type.
func (errorType *ErrorType) Name() string {
	return errorType.name
}

// Unique number to identify the error type.
func (errorType *ErrorType) Code() int {
	return errorType.code
}

func (errorType *ErrorType) Category() Category {
	return errorType.category
}

// Allows the error type definition itself to also be a valid error for things like
// testing error equality.
func (errorType *ErrorType) Error() string {
	return errorType.name + " (" + strconv.Itoa(errorType.code) + ")"
}

// Used to return a specific error instance.
type ODataError struct {
	// The type of error we are returning.
	*ErrorType

	// A message detailing what caused the error.
	Message string

	// An id for the error being returned.
	ID uuid.UUID

	// A string / any mapping of data related to the error, such as the offending
	// header value or the current reader state.
	ErrorData map[string]interface{}

	// If this error was returned because of another error, the original error is stored
	// here.
	sourceErr error

	// The debug.Stack() from where this error was instantiated.
	sourceStack []byte

	// The xerrors.Frame from where this error was instantiated.
	frame xerrors.Frame
}

// Returns true if the underlying type of this error is errorType.
func (oDataError *ODataError) IsType(errorType *ErrorType) bool {
	return oDataError.ErrorType.code == errorType.code
}

// Lets errors.Is match an ODataError against its *ErrorType.
func (oDataError *ODataError) Is(target error) bool {
	errorType, ok := target.(*ErrorType)
	return ok && oDataError.IsType(errorType)
}

// Error string to conform to builtin error interface.
func (oDataError *ODataError) Error() string {
	return oDataError.ErrorType.Error() + " - " + oDataError.Message
}

// Implements xerrors.Wrapper.
func (oDataError *ODataError) Unwrap() error {
	return oDataError.sourceErr
}

// Implements fmt.Formatter so that "%+v" prints the frame the error was created at.
func (oDataError *ODataError) Format(state fmt.State, verb rune) {
	xerrors.FormatError(oDataError, state, verb)
}

// Implements xerrors.Formatter.
func (oDataError *ODataError) FormatError(printer xerrors.Printer) error {
	printer.Print(oDataError.Error())
	oDataError.frame.Format(printer)
	return oDataError.sourceErr
}

// Adds a data entry to the error and returns it, for chaining at the call site.
func (oDataError *ODataError) With(key string, value interface{}) *ODataError {
	if oDataError.ErrorData == nil {
		oDataError.ErrorData = make(map[string]interface{})
	}
	oDataError.ErrorData[key] = value
	return oDataError
}

// More verbose error message that includes a debug.Stack() and source error
// information. This is not part of Error() by default since it is noisy.
func (oDataError *ODataError) LogMessage() string {
	return fmt.Sprint(
		"\nMESSAGE: ",
		oDataError.Error(),
		"\nDATA: ",
		oDataError.ErrorData,
		"\nORIGINAL: ",
		oDataError.sourceErr,
		"\nSTACK:\n",
		string(oDataError.sourceStack),
	)
}

// Returns the first ODataError in err's chain, if any.
func AsODataError(err error) (*ODataError, bool) {
	var oDataError *ODataError
	if xerrors.As(err, &oDataError) {
		return oDataError, true
	}
	return nil, false
}

// Returns true if err, or an error it wraps, is an ODataError of the category.
func IsCategory(err error, category Category) bool {
	oDataError, ok := AsODataError(err)
	return ok && oDataError.category == category
}
