package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed pipeline error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so callers can test against the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

const (
	CodeMalformedInput  = "MALFORMED_INPUT"
	CodeMissingSection  = "MISSING_SECTION"
	CodeMissingField    = "MISSING_FIELD"
	CodeEmptyInput      = "EMPTY_INPUT"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeUpstream        = "UPSTREAM_ERROR"
)

// Predefined errors for the pipeline taxonomy.
var (
	ErrMalformedInput  = New(CodeMalformedInput, http.StatusUnprocessableEntity, "malformed input")
	ErrMissingSection  = New(CodeMissingSection, http.StatusUnprocessableEntity, "missing section")
	ErrMissingField    = New(CodeMissingField, http.StatusUnprocessableEntity, "missing field")
	ErrEmptyInput      = New(CodeEmptyInput, http.StatusUnprocessableEntity, "empty input")
	ErrUnsupportedType = New(CodeUnsupportedType, http.StatusUnsupportedMediaType, "unsupported file type")
	ErrUpstream        = New(CodeUpstream, http.StatusBadGateway, "upstream service failed")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss       = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// MalformedInput reports unparsable XML/CSV/JSON structure.
func MalformedInput(message string, err error) *Error {
	return Wrap(err, ErrMalformedInput.Code, ErrMalformedInput.Status, message)
}

// MissingSection reports a required XML section that is absent.
func MissingSection(section string) *Error {
	e := Clone(ErrMissingSection, fmt.Sprintf("document does not contain %s", section))
	e.Data = map[string]string{"section": section}
	return e
}

// MissingField reports an expected field absent on a record.
func MissingField(field, detail string) *Error {
	message := fmt.Sprintf("missing field %q", field)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	e := Clone(ErrMissingField, message)
	e.Data = map[string]string{"field": field}
	return e
}

// EmptyInput reports zero usable rows or questions where at least one is required.
func EmptyInput(message string) *Error {
	return Clone(ErrEmptyInput, message)
}

// UnsupportedType reports a file whose extension or mime type is not accepted.
func UnsupportedType(message string) *Error {
	return Clone(ErrUnsupportedType, message)
}

// Upstream reports a non-success or unparsable response from the print/OCR service.
// The upstream body, when present, travels as error data.
func Upstream(message string, data interface{}, err error) *Error {
	e := Wrap(err, ErrUpstream.Code, ErrUpstream.Status, message)
	e.Data = data
	return e
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
