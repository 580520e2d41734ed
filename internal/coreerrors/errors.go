// Package coreerrors defines the flat error catalogue shared by every
// manualcore operation. Error kinds are not hierarchical: validation
// failures are returned directly, never mapped onto each other.
package coreerrors

import "fmt"

// Code is a closed set of machine-readable error kinds.
type Code string

const (
	CodeInvalidParameter Code = "invalid_parameter"
	CodeInvalidPath       Code = "invalid_path"
	CodeOutOfScope        Code = "out_of_scope"
	CodeNeedsNarrowScope  Code = "needs_narrow_scope"
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeInvalidScope      Code = "invalid_scope"
	CodeConflict          Code = "conflict"
)

var allowed = map[Code]bool{
	CodeInvalidParameter: true,
	CodeInvalidPath:      true,
	CodeOutOfScope:       true,
	CodeNeedsNarrowScope: true,
	CodeNotFound:         true,
	CodeForbidden:        true,
	CodeInvalidScope:     true,
	CodeConflict:         true,
}

// Error is the structured failure returned by every core operation. A code
// outside the allowed catalogue collapses to CodeInvalidParameter rather
// than being rejected at construction time, mirroring the normalization the
// original implementation performs on its exception type.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

// New builds an Error, normalizing an out-of-catalogue code.
func New(code Code, message string, details map[string]any) *Error {
	if !allowed[code] {
		code = CodeInvalidParameter
	}
	return &Error{Code: code, Message: message, Details: details}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToMap renders the error the way a tool response surfaces it.
func (e *Error) ToMap() map[string]any {
	m := map[string]any{"code": string(e.Code), "message": e.Message}
	if len(e.Details) > 0 {
		m["details"] = e.Details
	}
	return m
}

// Ensure raises an *Error when condition is false. Mirrors the ensure()
// helper the retrieval core's Python predecessor used at every validation
// site.
func Ensure(condition bool, code Code, message string, details map[string]any) error {
	if condition {
		return nil
	}
	return New(code, message, details)
}

// As reports whether err is a *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
