package parsers

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCellDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantError bool
	}{
		{name: "Excel serial for 2023-01-01", input: "44927", want: "2023-01-01"},
		{name: "Excel serial with fraction", input: "44927.75", want: "2023-01-01"},
		{name: "Slash day first", input: "15/03/2023", want: "2023-03-15"},
		{name: "ISO date", input: "2023-03-15", want: "2023-03-15"},
		{name: "Dotted date", input: "15.03.2023", want: "2023-03-15"},
		{name: "Datetime keeps date only", input: "2023-03-15 14:30:00", want: "2023-03-15"},
		{name: "Direction marks stripped", input: "‏15/03/2023‎", want: "2023-03-15"},
		{name: "Empty cell", input: "", wantError: true},
		{name: "Whitespace only", input: "   ", wantError: true},
		{name: "Small number is not a date", input: "1234", wantError: true},
		{name: "Large number is not a date", input: "99999999", wantError: true},
		{name: "Garbage", input: "לא תאריך", wantError: true},
		{name: "Out of range year", input: "15/03/1925", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CellDate(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("CellDate(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if err != nil {
				return
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("CellDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
			if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
				t.Errorf("CellDate(%q) kept a time component: %v", tt.input, got)
			}
		})
	}
}

func TestCellAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantError bool
	}{
		{name: "Plain negative", input: "-120.50", want: "-120.5"},
		{name: "Plain positive", input: "99", want: "99"},
		{name: "Shekel symbol", input: "₪ 1,234.56", want: "1234.56"},
		{name: "Dollar symbol", input: "$50.00", want: "50"},
		{name: "Thousands separator", input: "12,345", want: "12345"},
		{name: "Non-breaking space", input: "1 000", want: "1000"},
		{name: "Direction marks stripped", input: "‏-42.5", want: "-42.5"},
		{name: "Empty cell", input: "", wantError: true},
		{name: "Lone minus", input: "-", wantError: true},
		{name: "Zero rejected", input: "0", wantError: true},
		{name: "Zero with symbol rejected", input: "₪0.00", wantError: true},
		{name: "Garbage", input: "abc", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CellAmount(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("CellAmount(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if err != nil {
				return
			}
			if got.String() != tt.want {
				t.Errorf("CellAmount(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestCellBalance(t *testing.T) {
	if b := CellBalance("1,500.25"); b == nil || b.String() != "1500.25" {
		t.Errorf("CellBalance parse failed, got %v", b)
	}
	if b := CellBalance("0"); b == nil || !b.IsZero() {
		t.Error("Zero balance should be accepted")
	}
	if b := CellBalance(""); b != nil {
		t.Errorf("Empty cell should yield nil, got %v", b)
	}
	if b := CellBalance("not a number"); b != nil {
		t.Errorf("Unparseable cell should yield nil, got %v", b)
	}
}

func TestForceNegative(t *testing.T) {
	if got := forceNegative(decimal.NewFromFloat(30)); got.String() != "-30" {
		t.Errorf("forceNegative(30) = %s, want -30", got)
	}
	if got := forceNegative(decimal.NewFromFloat(-30)); got.String() != "-30" {
		t.Errorf("forceNegative(-30) = %s, want -30", got)
	}
}

func TestIsBlankRow(t *testing.T) {
	if !isBlankRow([]string{"", "  ", "\t"}) {
		t.Error("Whitespace-only row should be blank")
	}
	if isBlankRow([]string{"", "x", ""}) {
		t.Error("Row with content should not be blank")
	}
	if !isBlankRow(nil) {
		t.Error("Nil row should be blank")
	}
}

func TestParseResult_Merge(t *testing.T) {
	a := &ParseResult{Parser: "a"}
	a.Skip(3, "bad date")

	b := &ParseResult{Parser: "b"}
	b.Skip(7, "bad amount")

	a.Merge(b)
	if len(a.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped rows after merge, got %d", len(a.Skipped))
	}
	if a.Skipped[0].Row != 3 || a.Skipped[1].Row != 7 {
		t.Errorf("Merge did not preserve order: %+v", a.Skipped)
	}
}
