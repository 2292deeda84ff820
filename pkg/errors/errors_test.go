package errors

import (
	"errors"
	"testing"
)

func TestImportError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "store error",
			category:   CategoryStore,
			code:       CodeStoreWriteFailed,
			message:    "write failed",
			cause:      errors.New("disk full"),
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ImportError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestImportErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/file").
		WithContext("row", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/file" {
		t.Errorf("expected file context '/path/to/file', got %v", err.Context["file"])
	}
	if err.Context["row"] != 42 {
		t.Errorf("expected row context 42, got %v", err.Context["row"])
	}
	if err.Suggestion != "check file path" {
		t.Errorf("expected suggestion 'check file path', got %s", err.Suggestion)
	}

	expected := "test error (suggestion: check file path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/statement.xlsx", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Code != CodeFilePermission {
			t.Errorf("expected permission code, got %s", err.Code)
		}
		if err.Context["file_path"] != "/test/statement.xlsx" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeInvalidData, "statement.csv", 10, "bad amount", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["file"] != "statement.csv" {
			t.Errorf("expected file context, got %v", err.Context["file"])
		}
		if err.Context["row"] != 10 {
			t.Errorf("expected row context, got %v", err.Context["row"])
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidAmount, "amount", "12.3.4", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "amount" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
		if err.Context["value"] != "12.3.4" {
			t.Errorf("expected value context, got %v", err.Context["value"])
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		cause := errors.New("database is locked")
		err := StoreError(CodeStoreOpenFailed, "import", cause)

		if err.Category != CategoryStore {
			t.Errorf("expected store category, got %s", err.Category)
		}
		if err.Context["operation"] != "import" {
			t.Errorf("expected operation context, got %v", err.Context["operation"])
		}
		if err.GetExitCode() != 5 {
			t.Errorf("expected exit code 5, got %d", err.GetExitCode())
		}
	})
}

func TestErrorSummary(t *testing.T) {
	errs := []*ImportError{
		New(CategoryFile, CodeFileNotFound, "error 1"),
		New(CategoryFile, CodeFilePermission, "error 2"),
		New(CategoryParse, CodeInvalidFormat, "error 3"),
		New(CategoryParse, CodeNoRecognizedFormat, "error 4"),
		New(CategoryValidation, CodeInvalidAmount, "error 5"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 5 {
		t.Errorf("expected total 5, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryFile] != 2 {
		t.Errorf("expected 2 file errors, got %d", summary.ByCategory[CategoryFile])
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("expected 2 parse errors, got %d", summary.ByCategory[CategoryParse])
	}
	if summary.ByCategory[CategoryValidation] != 1 {
		t.Errorf("expected 1 validation error, got %d", summary.ByCategory[CategoryValidation])
	}
	if summary.ByCode[CodeFileNotFound] != 1 {
		t.Errorf("expected 1 file not found error, got %d", summary.ByCode[CodeFileNotFound])
	}
	if summary.Error() == "" {
		t.Error("expected non-empty error string")
	}
	if summary.GetExitCode() == 0 {
		t.Error("expected non-zero exit code")
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary([]*ImportError{})

	if summary.Total != 0 {
		t.Errorf("expected total 0, got %d", summary.Total)
	}
	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestSingleErrorSummary(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "single error")
	summary := NewErrorSummary([]*ImportError{err})

	if summary.Total != 1 {
		t.Errorf("expected total 1, got %d", summary.Total)
	}
	if summary.Error() != "single error" {
		t.Errorf("expected 'single error', got '%s'", summary.Error())
	}
}

func TestIsImportError(t *testing.T) {
	importErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if !IsImportError(importErr) {
		t.Error("expected IsImportError to return true for ImportError")
	}
	if IsImportError(genericErr) {
		t.Error("expected IsImportError to return false for generic error")
	}
	if IsImportError(nil) {
		t.Error("expected IsImportError to return false for nil")
	}
}

func TestAsImportError(t *testing.T) {
	importErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if extracted, ok := AsImportError(importErr); !ok || extracted != importErr {
		t.Error("expected AsImportError to extract ImportError")
	}
	if _, ok := AsImportError(genericErr); ok {
		t.Error("expected AsImportError to return false for generic error")
	}
	if _, ok := AsImportError(nil); ok {
		t.Error("expected AsImportError to return false for nil")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	importErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	result1 := WrapIfNeeded(importErr, CategoryParse, CodeInvalidFormat, "wrapped")
	if result1 != importErr {
		t.Error("expected WrapIfNeeded to return original ImportError")
	}

	result2 := WrapIfNeeded(genericErr, CategoryParse, CodeInvalidFormat, "wrapped")
	if result2.Cause != genericErr {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}
	if result2.Category != CategoryParse {
		t.Error("expected wrapped error to have correct category")
	}

	result3 := WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped")
	if result3 != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category     ErrorCategory
		expectedCode int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryStore, 5},
		{CategoryImport, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, "test_code", "test message")
			if err.GetExitCode() != tt.expectedCode {
				t.Errorf("expected exit code %d for category %s, got %d",
					tt.expectedCode, tt.category, err.GetExitCode())
			}
		})
	}
}
