// Package errors provides structured, actionable error messages for matchmedia.
//
// The errors package implements an error system that:
//   - Points at the exact offset inside a media query expression
//   - Explains what went wrong in plain language
//   - Suggests how to fix issues with syntax examples
//   - Links to documentation for deeper understanding
//
// # Error Categories
//
// Errors are organized into categories:
//   - query: Media query parse and evaluation errors
//   - runtime: Reactive runtime errors (hook order, disposed owners)
//   - protocol: Wire protocol errors (invalid frames, connection issues)
//   - config: Configuration file and limit errors
//   - cli: Command-line usage errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E021") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E021").
//	    WithQuery("(max-widht: 768px)", 1).
//	    WithSuggestion(`did you mean "max-width"?`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E021: Unknown media feature
//	//
//	//   (max-widht: 768px)
//	//    ^
//	//
//	//   The feature name is not recognized. ...
//	//
//	//   Hint: did you mean "max-width"?
//	//
//	//   Learn more: https://matchmedia-go.dev/docs/errors/E021
package errors
