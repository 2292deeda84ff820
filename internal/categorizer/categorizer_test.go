package categorizer

import (
	"testing"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"

	"github.com/shopspring/decimal"
)

func testCategories() []*models.Category {
	return []*models.Category{
		{ID: "coffee", Name: "Coffee", Rules: []string{"קפה", "cofix"}},
		{ID: "food", Name: "Food", Rules: []string{"מסעדה", "קפ"}},
	}
}

func TestCategorizer_Categorize(t *testing.T) {
	c := New(testCategories())

	tests := []struct {
		name        string
		description string
		isIncome    bool
		want        string
	}{
		{name: "Rule match", description: "קפה גרג תל אביב", want: "coffee"},
		{name: "Case insensitive rule", description: "COFIX ramat gan", want: "coffee"},
		{
			// "קפ" under food also matches, but coffee is earlier in
			// store order and wins
			name:        "First match wins across categories",
			description: "קפה נמל",
			want:        "coffee",
		},
		{name: "Later category still reachable", description: "מסעדה סינית", want: "food"},
		{name: "Income fallback", description: "משכורת פברואר", isIncome: true, want: FallbackIncome},
		{name: "Income keywords ignored for expenses", description: "משכורת פברואר", want: models.CategoryOther},
		{name: "Shopping fallback", description: "רמי לוי שיווק", want: FallbackShopping},
		{name: "Transport fallback", description: "פז תחנת דלק", want: FallbackTransport},
		{name: "Bills fallback", description: "חברת חשמל", want: FallbackBills},
		{name: "No match", description: "משהו אחר לגמרי", want: models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Categorize(tt.description, tt.isIncome); got != tt.want {
				t.Errorf("Categorize(%q, %v) = %q, want %q", tt.description, tt.isIncome, got, tt.want)
			}
		})
	}
}

func TestCategorizer_Apply(t *testing.T) {
	c := New(testCategories())

	transactions := []*models.Transaction{
		{Description: "קפה גרג", Amount: decimal.NewFromFloat(-24)},
		{Description: "כבר מסווג", Amount: decimal.NewFromFloat(-10), Category: "preset"},
	}
	charges := []*models.UpcomingCharge{
		{Description: "מסעדה", Amount: decimal.NewFromFloat(-80)},
	}

	c.Apply(transactions, charges)

	if transactions[0].Category != "coffee" {
		t.Errorf("Transaction category = %q, want coffee", transactions[0].Category)
	}
	if transactions[1].Category != "preset" {
		t.Error("Apply must not overwrite an existing category")
	}
	if charges[0].Category != "food" {
		t.Errorf("Charge category = %q, want food", charges[0].Category)
	}
}

func TestImportRules(t *testing.T) {
	data := &workbook.CSVData{
		Headers: []string{"Transaction", "Category"},
		Records: []map[string]string{
			{"Transaction": "ארומה תל אביב", "Category": "Coffee"},
			{"Transaction": "סופר יודה", "Category": "Groceries"},
			{"Transaction": "ארומה תל אביב", "Category": "Coffee"},
			{"Transaction": "", "Category": "Coffee"},
		},
	}

	original := testCategories()
	updated, err := ImportRules(data, original)
	if err != nil {
		t.Fatalf("ImportRules failed: %v", err)
	}

	// Existing category matched by name receives the new rule once
	var coffee *models.Category
	for _, cat := range updated {
		if cat.ID == "coffee" {
			coffee = cat
		}
	}
	if coffee == nil {
		t.Fatal("Coffee category missing from result")
	}
	count := 0
	for _, rule := range coffee.Rules {
		if rule == "ארומה תל אביב" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected the new rule exactly once, got %d occurrences", count)
	}

	// Unknown category names are auto-created
	var groceries *models.Category
	for _, cat := range updated {
		if cat.Name == "Groceries" {
			groceries = cat
		}
	}
	if groceries == nil {
		t.Fatal("Groceries category was not auto-created")
	}
	if groceries.ID == "" || groceries.Color == "" {
		t.Errorf("Auto-created category missing id or color: %+v", groceries)
	}
	if len(groceries.Rules) != 1 || groceries.Rules[0] != "סופר יודה" {
		t.Errorf("Groceries rules = %v", groceries.Rules)
	}

	// The input slice is not mutated
	if len(original[0].Rules) != 2 {
		t.Errorf("Input category rules were mutated: %v", original[0].Rules)
	}
}

func TestImportRules_HeaderFallback(t *testing.T) {
	// Without recognizable header names the first two columns are used
	data := &workbook.CSVData{
		Headers: []string{"עסקה", "קבוצה"},
		Records: []map[string]string{
			{"עסקה": "חניון אחוזת החוף", "קבוצה": "Parking"},
		},
	}

	updated, err := ImportRules(data, nil)
	if err != nil {
		t.Fatalf("ImportRules failed: %v", err)
	}
	if len(updated) != 1 || updated[0].Name != "Parking" {
		t.Errorf("Expected one auto-created Parking category, got %+v", updated)
	}
}

func TestImportRules_MissingColumns(t *testing.T) {
	data := &workbook.CSVData{Headers: []string{"only-one"}}
	if _, err := ImportRules(data, nil); err == nil {
		t.Fatal("Expected error for a single-column mapping file")
	}
}
