package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"golang-statement-import-service/pkg/errors"
)

func workbookBytes(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				t.Fatalf("Failed to rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("Failed to add sheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("Failed to build cell name: %v", err)
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("Failed to set row: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func TestOpen(t *testing.T) {
	data := workbookBytes(t, map[string][][]string{
		"דף1": {
			{"תאריך", "סכום"},
			{"01/02/2023", "-50"},
		},
	})

	wb, err := Open(bytes.NewReader(data), "statement.xlsx")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()

	rows, err := wb.FirstSheet()
	if err != nil {
		t.Fatalf("FirstSheet failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "תאריך" || rows[1][1] != "-50" {
		t.Errorf("Rows = %v", rows)
	}

	if !wb.HasSheet("דף1") {
		t.Error("HasSheet should find the renamed sheet")
	}
	if wb.HasSheet("אחר") {
		t.Error("HasSheet should not find a missing sheet")
	}
}

func TestOpen_NotAWorkbook(t *testing.T) {
	_, err := Open(strings.NewReader("this is not a zip archive"), "junk.xlsx")
	if err == nil {
		t.Fatal("Expected error for non-workbook data")
	}
	importErr, ok := errors.AsImportError(err)
	if !ok {
		t.Fatalf("Expected ImportError, got %T", err)
	}
	if importErr.Code != errors.CodeFileCorrupted {
		t.Errorf("Code = %s, want %s", importErr.Code, errors.CodeFileCorrupted)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "absent.xlsx"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	importErr, ok := errors.AsImportError(err)
	if !ok || importErr.Code != errors.CodeFileNotFound {
		t.Errorf("Expected file_not_found error, got %v", err)
	}
}

func TestSheet_Missing(t *testing.T) {
	data := workbookBytes(t, map[string][][]string{
		"בלבד": {{"x"}},
	})
	wb, err := Open(bytes.NewReader(data), "statement.xlsx")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()

	if _, err := wb.Sheet("לא קיים"); err == nil {
		t.Error("Expected error for missing sheet")
	}
}

func TestReadCSV(t *testing.T) {
	input := "תאריך, סכום ,תיאור\n01/02/2023,-50,מכולת\n\n02/02/2023,-70,דלק\n"

	data, err := ReadCSV(strings.NewReader(input), "statement.csv", nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	want := []string{"תאריך", "סכום", "תיאור"}
	for i, h := range want {
		if data.Headers[i] != h {
			t.Errorf("Headers[%d] = %q, want %q", i, data.Headers[i], h)
		}
	}

	if len(data.Records) != 2 {
		t.Fatalf("Expected 2 records (blank line dropped), got %d", len(data.Records))
	}
	if data.Records[0]["סכום"] != "-50" {
		t.Errorf("First record = %v", data.Records[0])
	}
	if data.Records[1]["תיאור"] != "דלק" {
		t.Errorf("Second record = %v", data.Records[1])
	}
}

func TestReadCSV_BOM(t *testing.T) {
	input := "\ufeffdate,amount\n2023-01-01,-5\n"

	data, err := ReadCSV(strings.NewReader(input), "statement.csv", nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if data.Headers[0] != "date" {
		t.Errorf("BOM not stripped from first header: %q", data.Headers[0])
	}
}

func TestReadCSV_EmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", nil)
	if err == nil {
		t.Fatal("Expected error for empty file")
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	data, err := ReadCSV(strings.NewReader("date,amount\n"), "statement.csv", nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(data.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(data.Records))
	}
}

func TestReadCSV_InvalidEncoding(t *testing.T) {
	// Latin-1 bytes that are not valid UTF-8
	input := []byte{'d', 'a', 't', 'e', ',', 0xE9, 0xF8, '\n'}

	_, err := ReadCSV(bytes.NewReader(input), "statement.csv", DefaultCSVConfig())
	if err == nil {
		t.Fatal("Expected encoding error")
	}
	importErr, ok := errors.AsImportError(err)
	if !ok || importErr.Code != errors.CodeEncodingError {
		t.Errorf("Expected encoding_error, got %v", err)
	}
}

func TestReadCSV_ShortRecord(t *testing.T) {
	input := "date,amount,description\n2023-01-01,-5\n"

	data, err := ReadCSV(strings.NewReader(input), "statement.csv", nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(data.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(data.Records))
	}
	if _, ok := data.Records[0]["description"]; ok {
		t.Error("Missing trailing field should not appear in the record")
	}
}

func TestOpenFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	data := workbookBytes(t, map[string][][]string{
		"Sheet1": {{"a", "b"}, {"1", "2"}},
	})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}

	wb, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer wb.Close()

	rows, err := wb.FirstSheet()
	if err != nil {
		t.Fatalf("FirstSheet failed: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1" {
		t.Errorf("Rows = %v", rows)
	}
}
