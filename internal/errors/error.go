package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryQuery    Category = "query"
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Error is a structured error with an error code, the offending media
// query expression, and a fix suggestion. Parse errors carry the byte
// offset into the query so formatters can point at the exact spot.
type Error struct {
	// Code is a unique error identifier (e.g., "Q002").
	Code string

	// Category is the error type (query, runtime, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Query is the media query expression the error refers to, if any.
	Query string

	// Pos is the byte offset into Query where the error was detected.
	// Only meaningful when Query is set; -1 means "no position".
	Pos int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows valid syntax, if applicable.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[MM %s] %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithQuery attaches the offending query expression and position.
func (e *Error) WithQuery(query string, pos int) *Error {
	e.Query = query
	e.Pos = pos
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithExample adds an example of valid syntax to the error.
func (e *Error) WithExample(ex string) *Error {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "unknown error",
			Pos:     -1,
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
		Pos:      -1,
	}
}

// Newf creates a new Error with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Pos:      -1,
	}
}

// FromError wraps a standard error under a registered code. Existing
// *Error values pass through unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if me, ok := err.(*Error); ok {
		return me
	}
	return New(code).Wrap(err)
}
