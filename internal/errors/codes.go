// Package errors provides structured error handling for xapers.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index open, file extraction)
//   - 3XX: Contention errors (index locked, retryable)
//   - 4XX: Validation errors (fields, paths, duplicates)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index and file I/O errors.
	CategoryIO Category = "IO"
	// CategoryContention indicates lock contention errors.
	CategoryContention Category = "CONTENTION"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeOpenFailed       = "ERR_201_OPEN_FAILED"
	ErrCodeExtractionFailed = "ERR_202_EXTRACTION_FAILED"

	// Contention errors (300-399)
	ErrCodeIndexBusy = "ERR_301_INDEX_BUSY"

	// Validation errors (400-499)
	ErrCodeUnknownField      = "ERR_401_UNKNOWN_FIELD"
	ErrCodeIllegalImportPath = "ERR_402_ILLEGAL_IMPORT_PATH"
	ErrCodeDuplicateDocument = "ERR_403_DUPLICATE_DOCUMENT"

	// Internal errors (500-599)
	ErrCodeAmbiguousMatch = "ERR_501_AMBIGUOUS_MATCH"
	ErrCodeNotImplemented = "ERR_502_NOT_IMPLEMENTED"
	ErrCodeReadOnly       = "ERR_503_READ_ONLY"
	ErrCodeInternal       = "ERR_504_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit of the numeric portion
	// (e.g., "401" from "ERR_401_UNKNOWN_FIELD").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryContention
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeIndexBusy
}
