// Package categorizer assigns category ids to normalized transactions by
// matching description substrings against user-defined category rules,
// with sign-conditioned keyword fallbacks for uncategorized records.
package categorizer

import (
	"fmt"
	"math/rand"
	"strings"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/workbook"
	"golang-statement-import-service/pkg/errors"
	"golang-statement-import-service/pkg/logger"

	"github.com/google/uuid"
)

// Fallback category ids used when no user rule matches.
const (
	FallbackIncome    = "income"
	FallbackShopping  = "shopping"
	FallbackTransport = "transport"
	FallbackBills     = "bills"
)

// Sign-conditioned keyword fallbacks. Income keywords apply only to
// inflows; the expense groups only to outflows.
var (
	incomeKeywords    = []string{"משכורת", "שכר", "salary", "העברה מ", "החזר"}
	shoppingKeywords  = []string{"סופר", "שופרסל", "רמי לוי", "ויקטורי", "מרקט", "supermarket"}
	transportKeywords = []string{"דלק", "פז", "סונול", "דור אלון", "רכבת", "אגד", "דן", "חניה", "כביש 6"}
	billsKeywords     = []string{"חשמל", "מים", "ארנונה", "גז", "בזק", "הוט", "פרטנר", "סלקום", "ביטוח"}
)

// Categorizer resolves category ids for transactions against an ordered
// category list. First match wins; there is no scoring.
type Categorizer struct {
	categories []*models.Category
	logger     logger.Logger
}

// New creates a Categorizer over the given ordered category list.
func New(categories []*models.Category) *Categorizer {
	return &Categorizer{
		categories: categories,
		logger:     logger.GetGlobalLogger().WithComponent("categorizer"),
	}
}

// Categorize returns the category id for a description/amount pair. User
// rules are consulted in store order, each category's rules in order, and
// the first rule that is a substring of the lowercased description wins.
// If nothing matches, sign-conditioned keyword fallbacks apply, then the
// sentinel category.
func (c *Categorizer) Categorize(description string, isIncome bool) string {
	lower := strings.ToLower(description)

	for _, cat := range c.categories {
		for _, rule := range cat.Rules {
			rule = strings.ToLower(strings.TrimSpace(rule))
			if rule == "" {
				continue
			}
			if strings.Contains(lower, rule) {
				return cat.ID
			}
		}
	}

	if isIncome {
		if containsAny(lower, incomeKeywords) {
			return FallbackIncome
		}
	} else {
		switch {
		case containsAny(lower, shoppingKeywords):
			return FallbackShopping
		case containsAny(lower, transportKeywords):
			return FallbackTransport
		case containsAny(lower, billsKeywords):
			return FallbackBills
		}
	}

	return models.CategoryOther
}

// Apply assigns a category to every transaction and upcoming charge that
// does not already carry one.
func (c *Categorizer) Apply(transactions []*models.Transaction, charges []*models.UpcomingCharge) {
	for _, tx := range transactions {
		if tx.Category == "" {
			tx.Category = c.Categorize(tx.Description, tx.Amount.IsPositive())
		}
	}
	for _, charge := range charges {
		if charge.Category == "" {
			charge.Category = c.Categorize(charge.Description, charge.Amount.IsPositive())
		}
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// categoryColors is the palette auto-created categories draw from.
var categoryColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

// ImportRules merges a two-column description-to-category CSV into the
// category list. Category names are matched exact first, then
// case-insensitive, then by substring overlap as a last resort; unmatched
// names are auto-created with a random color and an empty rule list. Each
// mapped description is appended (lowercased) to its category's rules.
// The input category slice is not mutated; an updated copy is returned.
func ImportRules(data *workbook.CSVData, categories []*models.Category) ([]*models.Category, error) {
	if len(data.Headers) < 2 {
		return nil, errors.ValidationError(errors.CodeMissingField, "csv_headers",
			fmt.Sprintf("%v", data.Headers), nil).
			WithSuggestion("The categories CSV needs a description column and a category column")
	}

	descHeader := pickHeader(data.Headers, []string{"transaction", "description"}, 0)
	catHeader := pickHeader(data.Headers, []string{"category"}, 1)

	updated := make([]*models.Category, len(categories))
	for i, cat := range categories {
		clone := *cat
		clone.Rules = append([]string(nil), cat.Rules...)
		updated[i] = &clone
	}

	log := logger.GetGlobalLogger().WithComponent("categorizer")
	created := 0

	for _, record := range data.Records {
		description := strings.TrimSpace(record[descHeader])
		name := strings.TrimSpace(record[catHeader])
		if description == "" || name == "" {
			continue
		}

		cat := findCategory(updated, name)
		if cat == nil {
			cat = &models.Category{
				ID:    uuid.NewString(),
				Name:  name,
				Color: categoryColors[rand.Intn(len(categoryColors))],
			}
			updated = append(updated, cat)
			created++
		}

		rule := strings.ToLower(description)
		if !hasRule(cat, rule) {
			cat.Rules = append(cat.Rules, rule)
		}
	}

	log.WithFields(logger.Fields{
		"mappings":           len(data.Records),
		"categories_created": created,
	}).Info("Imported category rules")

	return updated, nil
}

// findCategory matches a category by name: exact, then case-insensitive,
// then substring overlap in either direction.
func findCategory(categories []*models.Category, name string) *models.Category {
	for _, cat := range categories {
		if cat.Name == name {
			return cat
		}
	}

	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat
		}
	}

	lower := strings.ToLower(name)
	for _, cat := range categories {
		catLower := strings.ToLower(cat.Name)
		if strings.Contains(catLower, lower) || strings.Contains(lower, catLower) {
			return cat
		}
	}

	return nil
}

func hasRule(cat *models.Category, rule string) bool {
	for _, r := range cat.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

// pickHeader finds the first header matching one of the candidate names
// (case-insensitive); fallbackIdx selects by position when nothing
// matches by name.
func pickHeader(headers []string, candidates []string, fallbackIdx int) string {
	for _, h := range headers {
		for _, cand := range candidates {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return h
			}
		}
	}
	if fallbackIdx < len(headers) {
		return headers[fallbackIdx]
	}
	return ""
}
