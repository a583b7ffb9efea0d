package errors

import (
	"fmt"
	"strconv"
)

// XapersError is the structured error type for xapers.
// It provides context for error handling, logging, and user presentation.
type XapersError struct {
	// Code is the unique error code (e.g., "ERR_403_DUPLICATE_DOCUMENT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *XapersError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *XapersError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with XapersError.
func (e *XapersError) Is(target error) bool {
	if t, ok := target.(*XapersError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *XapersError) WithDetail(key, value string) *XapersError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new XapersError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *XapersError {
	return &XapersError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a XapersError from an existing error.
// The error's message becomes the XapersError message.
func Wrap(code string, err error) *XapersError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// UnknownField reports a field name missing from the prefix registry.
func UnknownField(name string) *XapersError {
	return New(ErrCodeUnknownField,
		fmt.Sprintf("unknown field %q", name), nil).
		WithDetail("field", name)
}

// IllegalImportPath reports a path that cannot be resolved under the
// database root.
func IllegalImportPath(path string) *XapersError {
	return New(ErrCodeIllegalImportPath,
		fmt.Sprintf("path %q is not within the database root", path), nil).
		WithDetail("path", path)
}

// DuplicateDocument reports a path (or other unique term) that is already
// indexed. The existing document id travels with the error.
func DuplicateDocument(path string, docid uint64) *XapersError {
	return New(ErrCodeDuplicateDocument,
		fmt.Sprintf("%q already indexed as id:%d", path, docid), nil).
		WithDetail("path", path).
		WithDetail("docid", strconv.FormatUint(docid, 10))
}

// AmbiguousMatch reports a uniqueness invariant violation: more than one
// document matched a supposedly-unique term.
func AmbiguousMatch(term string) *XapersError {
	return New(ErrCodeAmbiguousMatch,
		fmt.Sprintf("term %q matches more than one document", term), nil).
		WithDetail("term", term)
}

// OpenFailed reports a backend open/create failure.
func OpenFailed(path string, cause error) *XapersError {
	return New(ErrCodeOpenFailed,
		fmt.Sprintf("cannot open index at %s: %v", path, cause), cause).
		WithDetail("path", path)
}

// Busy reports index lock contention. Busy errors are retryable.
func Busy(cause error) *XapersError {
	return New(ErrCodeIndexBusy, "index is locked by another writer", cause)
}

// ExtractionFailed reports a text extraction failure for a file.
func ExtractionFailed(path string, cause error) *XapersError {
	return New(ErrCodeExtractionFailed,
		fmt.Sprintf("cannot extract text from %s: %v", path, cause), cause).
		WithDetail("path", path)
}

// NotImplemented reports an explicitly unsupported operation.
func NotImplemented(op string) *XapersError {
	return New(ErrCodeNotImplemented,
		fmt.Sprintf("%s is not implemented", op), nil).
		WithDetail("operation", op)
}

// ReadOnly reports a write attempted through a read-only handle.
func ReadOnly(op string) *XapersError {
	return New(ErrCodeReadOnly,
		fmt.Sprintf("%s requires a writable database", op), nil).
		WithDetail("operation", op)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a XapersError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if xe, ok := err.(*XapersError); ok {
		return xe.Retryable
	}
	return false
}

// GetCode extracts the error code from a XapersError.
// Returns empty string if not a XapersError.
func GetCode(err error) string {
	if xe, ok := err.(*XapersError); ok {
		return xe.Code
	}
	return ""
}

// DuplicateDocID extracts the existing document id carried by a
// duplicate-document error. The second return is false if the error is not
// a duplicate-document error.
func DuplicateDocID(err error) (uint64, bool) {
	xe, ok := err.(*XapersError)
	if !ok || xe.Code != ErrCodeDuplicateDocument {
		return 0, false
	}
	id, perr := strconv.ParseUint(xe.Details["docid"], 10, 64)
	if perr != nil {
		return 0, false
	}
	return id, true
}
