package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cometa-app/tscatalog/pkg/log"
)

type ErrorType int

const (
	ErrFileNotFound ErrorType = iota
	ErrFileRead
	ErrFileWrite
	ErrParse
	ErrValidation
	ErrConfig
	ErrStorage
	ErrUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrParse:
		return "Parse"
	case ErrValidation:
		return "Validation"
	case ErrConfig:
		return "Config"
	case ErrStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Error is the typed error surfaced by catalog loading, validation and storage.
type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(err error, errorType ErrorType, message string) *Error {
	e := NewError(errorType, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Type, e.Message)}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func IsErrorType(err error, errorType ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the type of the first *Error in err's chain, or ErrUnknown.
func TypeOf(err error) ErrorType {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrUnknown
}

// Advice returns an operator hint for the given error type.
func Advice(t ErrorType) string {
	switch t {
	case ErrFileNotFound:
		return "Check the catalog path and that the .ts file exists"
	case ErrFileRead:
		return "Check file permissions and that the catalog is not truncated"
	case ErrFileWrite:
		return "Ensure the output directory exists and is writable"
	case ErrParse:
		return "The catalog is not valid TS XML; regenerate it with lupdate or fix the markup"
	case ErrValidation:
		return "Fix the reported entries; each source string must be unique within its context"
	case ErrConfig:
		return "Check environment variables and the settings file"
	case ErrStorage:
		return "Check the database path and that no other process holds a lock on it"
	default:
		return "Review the error details"
	}
}

// Handle logs err together with advice for its type. It reports whether err
// was a typed *Error.
func Handle(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		log.Error("Unknown error: %v", err)
		return false
	}

	log.Error("%v\n advice: %s", err, Advice(appErr.Type))
	return true
}
