// Package pdferr provides the structured error type used by the loader and
// writer, and the conversion of those errors into the plain-text messages
// shown to users.
package pdferr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Code categorizes an Error.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeEncrypted      Code = "ENCRYPTED"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
	CodeInterrupted    Code = "INTERRUPTED"
	CodeMalformed      Code = "MALFORMED_PDF"
	CodeComplexOutline Code = "COMPLEX_OUTLINE"
	CodeUnsupported    Code = "UNSUPPORTED"
	CodeIO             Code = "IO_ERROR"
	CodeBusy           Code = "BUSY"
)

// Error is a categorized failure of a document operation.
type Error struct {
	Code    Code   // Error category
	Message string // Human-readable message
	Path    string // File involved, if any
	Cause   error  // Underlying error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if e.Path != "" {
		fmt.Fprintf(&sb, " (%s)", e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithPath sets the file path and returns the same error for chaining
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// New creates an Error with the given code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause in an Error
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps cause in an Error with a formatted message
func Wrapf(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Sentinels for use with errors.Is.
var (
	ErrNotFound       = &Error{Code: CodeNotFound}
	ErrEncrypted      = &Error{Code: CodeEncrypted}
	ErrAlreadyExists  = &Error{Code: CodeAlreadyExists}
	ErrInterrupted    = &Error{Code: CodeInterrupted}
	ErrMalformed      = &Error{Code: CodeMalformed}
	ErrComplexOutline = &Error{Code: CodeComplexOutline}
	ErrUnsupported    = &Error{Code: CodeUnsupported}
	ErrIO             = &Error{Code: CodeIO}
	ErrBusy           = &Error{Code: CodeBusy}
)

// User-visible messages for the fixed categories.
const (
	MsgNotFound       = "File not found"
	MsgEncrypted      = "Document is encrypted."
	MsgInterrupted    = "Interrupted."
	MsgComplexOutline = "This outline is too complex for me."
	msgAlreadyExists  = "Already exists: "
)

// GetCode extracts the code of the first *Error in err's chain.
func GetCode(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Message converts err into the plain-text message shown to users.
// A nil error yields the empty string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MsgInterrupted
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("%s (%s)", err.Error(), typeName(err))
	}
	switch e.Code {
	case CodeNotFound:
		return MsgNotFound
	case CodeEncrypted:
		return MsgEncrypted
	case CodeInterrupted:
		return MsgInterrupted
	case CodeComplexOutline:
		return MsgComplexOutline
	case CodeAlreadyExists:
		return msgAlreadyExists + e.Path
	}
	text := e.Message
	if e.Cause != nil {
		if text == "" {
			text = e.Cause.Error()
		} else {
			text += ": " + e.Cause.Error()
		}
	}
	return fmt.Sprintf("%s (%s)", text, e.Code)
}

// typeName returns the unqualified dynamic type name of err.
func typeName(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
