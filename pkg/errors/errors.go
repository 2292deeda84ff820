// Package errors defines the categorized error type used across the
// statement import pipeline. Errors carry a category, a machine-readable
// code, optional context values and a human suggestion, so the CLI layer
// can translate them into per-file failure messages and exit codes.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryImport        ErrorCategory = "import"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeFileCorrupted     ErrorCode = "file_corrupted"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"

	// Parse errors
	CodeInvalidFormat      ErrorCode = "invalid_format"
	CodeMissingWorksheet   ErrorCode = "missing_worksheet"
	CodeMissingColumn      ErrorCode = "missing_column"
	CodeInvalidData        ErrorCode = "invalid_data"
	CodeEncodingError      ErrorCode = "encoding_error"
	CodeNoRecognizedFormat ErrorCode = "no_recognized_format"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Store errors
	CodeStoreOpenFailed  ErrorCode = "store_open_failed"
	CodeStoreQueryFailed ErrorCode = "store_query_failed"
	CodeStoreWriteFailed ErrorCode = "store_write_failed"

	// Import errors
	CodeImportFailed ErrorCode = "import_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ImportError is the base error type for all application errors
type ImportError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ImportError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ImportError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ImportError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStore, CategoryImport, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ImportError) WithContext(key string, value interface{}) *ImportError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ImportError) WithSuggestion(suggestion string) *ImportError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ImportError
func New(category ErrorCategory, code ErrorCode, message string) *ImportError {
	return &ImportError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ImportError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ImportError {
	if err == nil {
		return nil
	}

	return &ImportError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "re-export the statement from the bank and try again"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported file format: %s", path)
		suggestion = "only XLSX, XLS and CSV statement exports are supported"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, row int, detail string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingWorksheet:
		message = fmt.Sprintf("no worksheet found in %s", file)
		suggestion = "verify the workbook was exported correctly and is not empty"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing expected column(s) in %s: %s", file, detail)
		suggestion = "verify the file has the bank's original header row"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s at row %d: %s", file, row, detail)
		suggestion = "correct the data format or remove the invalid entry"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in %s at row %d", file, row)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	case CodeNoRecognizedFormat:
		message = fmt.Sprintf("could not find any recognized table format in %s", file)
		suggestion = "check that the file is an unmodified bank export, or pass an explicit bank type"
	default:
		message = fmt.Sprintf("parse error in %s at row %d", file, row)
		suggestion = "check the file format and data integrity"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("row", row)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are valid decimal numbers (e.g., '-150.50')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format DD/MM/YYYY or YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// StoreError creates a store-related error
func StoreError(code ErrorCode, operation string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeStoreOpenFailed:
		message = fmt.Sprintf("failed to open transaction store during %s", operation)
		suggestion = "check the store path is writable and not locked by another process"
	case CodeStoreQueryFailed:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "verify the store file is not corrupted"
	case CodeStoreWriteFailed:
		message = fmt.Sprintf("store write failed during %s", operation)
		suggestion = "check disk space and store file permissions"
	default:
		message = fmt.Sprintf("store error during %s", operation)
		suggestion = "check the store file and try again"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ImportError {
	message := fmt.Sprintf("internal error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ImportError        `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ImportError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// IsImportError checks if an error is an ImportError
func IsImportError(err error) bool {
	_, ok := err.(*ImportError)
	return ok
}

// AsImportError extracts an ImportError from an error chain
func AsImportError(err error) (*ImportError, bool) {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an ImportError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ImportError {
	if err == nil {
		return nil
	}

	if importErr, ok := AsImportError(err); ok {
		return importErr
	}

	return Wrap(err, category, code, message)
}
