/*
OData reader error model and the catalog of reader error types.

This module defines two main objects for handling errors:

• ErrorType defines an error type. Every failure the reader can surface has exactly one
type, and every type belongs to a Category.

• ODataError is an instance of an error which contains an ErrorType.

# Checking errors

Error types are themselves errors, so both of these work:

	errors.Is(err, odataerrors.ReaderAlreadyUsed)
	odataerrors.IsCategory(err, odataerrors.CategoryUsage)

# Default ErrorType Variables

Pointers to every reader ErrorType are included in this package. Message texts are
kept together in messages.go.
*/
package odataerrors
