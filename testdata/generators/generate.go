// Command generate writes sample bank statement fixtures: a Discount
// account workbook (main table plus credit-card table), a Max credit-card
// workbook, a Cal export CSV and a description-to-category rules CSV.
//
// Usage:
//
//	go run generate.go -output-dir=../fixtures -count=25 -seed=7 -validate
//
// With -validate the generated files are parsed back through the import
// dispatcher so a fixture that no parser recognizes fails loudly here
// instead of inside a test run.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-statement-import-service/internal/models"
	"golang-statement-import-service/internal/parsers"
)

var merchants = []string{
	"סופר יוחננוף",
	"קפה נמל תל אביב",
	"פז תחנת דלק",
	"רמי לוי שיווק השקמה",
	"חשמל חברת החשמל",
	"ארומה ירושלים",
	"סופר פארם",
	"מסעדת האחים",
}

var accountDescriptions = []string{
	"משכורת חודשית",
	"העברה בנקאית",
	"משיכת מזומן",
	"הוראת קבע ארנונה",
	"עמלת ניהול חשבון",
}

type generator struct {
	rand    *rand.Rand
	count   int
	current time.Time
}

func newGenerator(seed int64, count int, start time.Time) *generator {
	return &generator{
		rand:    rand.New(rand.NewSource(seed)),
		count:   count,
		current: start,
	}
}

func (g *generator) nextDate() time.Time {
	g.current = g.current.AddDate(0, 0, g.rand.Intn(3)+1)
	return g.current
}

func (g *generator) amount(min, max float64) decimal.Decimal {
	v := min + g.rand.Float64()*(max-min)
	return decimal.NewFromFloat(v).Round(2)
}

func (g *generator) pick(options []string) string {
	return options[g.rand.Intn(len(options))]
}

func dateCell(d time.Time) string {
	return d.Format("02/01/2006")
}

// writeDiscountWorkbook writes an account statement with the bank's two
// tables: the signed-amount account table and the credit-card charges
// table below it, separated by a blank row.
func writeDiscountWorkbook(path string, g *generator) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"תנועות בחשבון 123-456789"},
		{},
		{"תאריך", "יום ערך", "תיאור התנועה", "₪ זכות/חובה", "₪ יתרה", "אסמכתה", "עמלה", "ערוץ ביצוע"},
	}

	balance := decimal.NewFromInt(15000)
	for i := 0; i < g.count; i++ {
		date := g.nextDate()
		amount := g.amount(-1200, -40)
		desc := g.pick(accountDescriptions)
		if g.rand.Intn(6) == 0 {
			amount = g.amount(3000, 12000)
			desc = "משכורת חודשית"
		}
		balance = balance.Add(amount)
		rows = append(rows, []interface{}{
			dateCell(date), dateCell(date), desc,
			amount.String(), balance.String(),
			fmt.Sprintf("%06d", g.rand.Intn(1000000)), "", "אינטרנט",
		})
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"תאריך רכישה", "תאריך חיוב", "שם בית העסק", "סכום החיוב", "יתרה לחיוב", "הערות"},
	)
	for i := 0; i < g.count/3+1; i++ {
		date := g.nextDate()
		charge := date.AddDate(0, 1, 0)
		rows = append(rows, []interface{}{
			dateCell(date), dateCell(charge), g.pick(merchants),
			g.amount(20, 600).String(), "", "",
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// writeMaxWorkbook writes a card statement with the export's fixed three
// banner rows above the header.
func writeMaxWorkbook(path string, g *generator) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "עסקאות במועד החיוב"); err != nil {
		return err
	}
	sheet = "עסקאות במועד החיוב"

	rows := [][]interface{}{
		{"פירוט עסקאות לחודש"},
		{"כרטיס 1234"},
		{},
		{"תאריך עסקה", "שם בית העסק", "קטגוריה", "4 ספרות אחרונות של כרטיס האשראי", "סוג עסקה", "סכום חיוב", "מטבע חיוב", "תאריך חיוב", "הערות"},
	}

	for i := 0; i < g.count; i++ {
		date := g.nextDate()
		charge := date.AddDate(0, 1, 0)
		rows = append(rows, []interface{}{
			dateCell(date), g.pick(merchants), "", "1234", "רגילה",
			g.amount(15, 450).String(), "₪", dateCell(charge), "",
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCalCSV(path string, g *generator) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"תאריך עסקה", "שם בית עסק", "סכום חיוב"}); err != nil {
		return err
	}
	for i := 0; i < g.count; i++ {
		record := []string{
			dateCell(g.nextDate()),
			g.pick(merchants),
			g.amount(10, 380).String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeCategoriesCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	rules := [][]string{
		{"description", "category"},
		{"סופר", "Groceries"},
		{"קפה", "Coffee"},
		{"דלק", "Transport"},
		{"חשמל", "Bills"},
		{"משכורת", "Income"},
	}
	if err := w.WriteAll(rules); err != nil {
		return err
	}
	return w.Error()
}

func validateFixture(path string) error {
	dispatcher := parsers.NewDispatcher(models.DeterministicID)
	result, err := dispatcher.ParseFile(path, models.HintAuto)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(result.Transactions)+len(result.UpcomingCharges) == 0 {
		return fmt.Errorf("parse %s: no records recognized", path)
	}
	log.Printf("validated %s: parser=%s transactions=%d charges=%d skipped=%d",
		filepath.Base(path), result.Parser,
		len(result.Transactions), len(result.UpcomingCharges), len(result.Skipped))
	return nil
}

func main() {
	var (
		outputDir = flag.String("output-dir", "../fixtures", "Output directory for generated fixtures")
		count     = flag.Int("count", 25, "Rows per statement")
		seed      = flag.Int64("seed", 1, "Random seed")
		validate  = flag.Bool("validate", false, "Parse generated files back through the dispatcher")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	fixtures := []struct {
		name  string
		write func(path string) error
	}{
		{"discount.xlsx", func(p string) error {
			return writeDiscountWorkbook(p, newGenerator(*seed, *count, start))
		}},
		{"max.xlsx", func(p string) error {
			return writeMaxWorkbook(p, newGenerator(*seed+1, *count, start))
		}},
		{"cal.csv", func(p string) error {
			return writeCalCSV(p, newGenerator(*seed+2, *count, start))
		}},
		{"categories.csv", writeCategoriesCSV},
	}

	var statements []string
	for _, fx := range fixtures {
		path := filepath.Join(*outputDir, fx.name)
		if err := fx.write(path); err != nil {
			log.Fatalf("generate %s: %v", fx.name, err)
		}
		log.Printf("wrote %s", path)
		if fx.name != "categories.csv" {
			statements = append(statements, path)
		}
	}

	if *validate {
		for _, path := range statements {
			if err := validateFixture(path); err != nil {
				log.Fatal(err)
			}
		}
	}
}
