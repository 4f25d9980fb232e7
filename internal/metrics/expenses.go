package metrics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ycf/billing-portal/internal/model"
)

// Bucket labels that are not ledger categories.
const (
	OthersCategory     = "Others"
	NoneCategory       = "None"
	UnknownPaymentType = "Unknown"
)

// knownCategories maps the normalized category name to its display label.
var knownCategories = map[string]string{
	"transport":         "Transport",
	"rte food supplies": "RTE Food Supplies",
	"office supplies":   "Office Supplies",
	"salary":            "Salary",
	"treatment":         "Treatment",
	"electricity":       "Electricity",
}

// CategoryLabel normalizes a category name; unknown names become OthersCategory.
func CategoryLabel(category string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(category), " "))
	if l, ok := knownCategories[norm]; ok {
		return l
	}
	return OthersCategory
}

// Bucket is an aggregated amount under a label.
type Bucket struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// aggregate sums amounts per key, keeping keys in first-seen order.
func aggregate(records []model.ExpenseRecord, key func(model.ExpenseRecord) string) []Bucket {
	idx := make(map[string]int)
	var out []Bucket
	for _, r := range records {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Bucket{Name: k})
		}
		out[i].Amount += r.Amount.Float()
	}
	return out
}

// CategoryTotals sums amounts per normalized category in first-seen order.
func CategoryTotals(records []model.ExpenseRecord) []Bucket {
	return aggregate(records, func(r model.ExpenseRecord) string { return CategoryLabel(r.Category) })
}

// PaymentShare is a payment-type bucket with its share of the total.
type PaymentShare struct {
	Bucket
	Percent string `json:"percent"`
}

// PaymentTypeTotals sums amounts per payment type (UnknownPaymentType when
// blank) and formats each share of the total with one decimal, e.g. "62.5%".
func PaymentTypeTotals(records []model.ExpenseRecord) []PaymentShare {
	buckets := aggregate(records, func(r model.ExpenseRecord) string {
		if strings.TrimSpace(r.PaymentType) == "" {
			return UnknownPaymentType
		}
		return r.PaymentType
	})
	total := TotalSpent(records)
	out := make([]PaymentShare, 0, len(buckets))
	for _, b := range buckets {
		var pct float64
		if total != 0 {
			pct = math.Round(b.Amount/total*1000) / 10
		}
		out = append(out, PaymentShare{Bucket: b, Percent: fmt.Sprintf("%.1f%%", pct)})
	}
	return out
}

// TotalSpent sums every amount.
func TotalSpent(records []model.ExpenseRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Amount.Float()
	}
	return sum
}

// BiggestTransaction returns the first record with the largest amount, or a
// zero record when records is empty.
func BiggestTransaction(records []model.ExpenseRecord) model.ExpenseRecord {
	if len(records) == 0 {
		return model.ExpenseRecord{}
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.Amount > best.Amount {
			best = r
		}
	}
	return best
}

// TopCategory returns the category bucket with the largest sum; ties go to the
// first-seen category. Empty input yields ("None", 0).
func TopCategory(records []model.ExpenseRecord) Bucket {
	buckets := CategoryTotals(records)
	if len(buckets) == 0 {
		return Bucket{Name: NoneCategory}
	}
	top := buckets[0]
	for _, b := range buckets[1:] {
		if b.Amount > top.Amount {
			top = b
		}
	}
	return top
}

const secondsPerDay = 24 * 60 * 60

// DayCount is the number of calendar days from the earliest to the latest
// dated record, inclusive. It is 1 when no record carries a date.
func DayCount(records []model.ExpenseRecord) int {
	var first, last time.Time
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		d := r.Date.Day()
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	if first.IsZero() {
		return 1
	}
	return int((last.Unix()-first.Unix())/secondsPerDay) + 1
}

// AveragePerDay is TotalSpent divided by DayCount.
func AveragePerDay(records []model.ExpenseRecord) float64 {
	return TotalSpent(records) / float64(DayCount(records))
}

// FilterByDate keeps records whose day lies within [from, to]. A zero bound
// is open.
func FilterByDate(records []model.ExpenseRecord, from, to model.Date) []model.ExpenseRecord {
	var out []model.ExpenseRecord
	for _, r := range records {
		if InRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	return out
}

// InRange reports whether d lies within [from, to] at day granularity.
func InRange(d, from, to model.Date) bool {
	day := d.Day()
	if !from.IsZero() && day.Before(from.Day()) {
		return false
	}
	if !to.IsZero() && day.After(to.Day()) {
		return false
	}
	return true
}

// ExpenseSummary rolls the ledger metrics up for a date window.
type ExpenseSummary struct {
	From         model.Date          `json:"from"`
	To           model.Date          `json:"to"`
	Records      int                 `json:"records"`
	TotalSpent   float64             `json:"totalSpent"`
	Biggest      model.ExpenseRecord `json:"biggestTransaction"`
	TopCategory  Bucket              `json:"topCategory"`
	DayCount     int                 `json:"dayCount"`
	AvgPerDay    float64             `json:"avgPerDay"`
	Categories   []Bucket            `json:"categories"`
	PaymentTypes []PaymentShare      `json:"paymentTypes"`
}

// SummarizeExpenses filters records by [from, to] and computes every ledger metric.
func SummarizeExpenses(records []model.ExpenseRecord, from, to model.Date) ExpenseSummary {
	in := FilterByDate(records, from, to)
	return ExpenseSummary{
		From:         from,
		To:           to,
		Records:      len(in),
		TotalSpent:   TotalSpent(in),
		Biggest:      BiggestTransaction(in),
		TopCategory:  TopCategory(in),
		DayCount:     DayCount(in),
		AvgPerDay:    AveragePerDay(in),
		Categories:   CategoryTotals(in),
		PaymentTypes: PaymentTypeTotals(in),
	}
}
