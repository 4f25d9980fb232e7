package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/ycf/billing-portal/internal/metrics"
	"github.com/ycf/billing-portal/internal/model"
)

// ------- validators -------

func validFilter(f string) bool {
	switch f {
	case metrics.FilterAll, metrics.FilterPaid, metrics.FilterPartially, metrics.FilterUnpaid:
		return true
	}
	return false
}

func validTreatment(s string) bool {
	return s == model.StatusPending || s == model.StatusCompleted
}

func validPayment(s string) bool {
	switch model.PaymentStatus(s) {
	case model.PaymentPaid, model.PaymentPartially, model.PaymentUnpaid:
		return true
	}
	return false
}

// parseDate accepts "" (zero date) or YYYY-MM-DD.
func parseDate(s string) (model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("bad date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// parseItems reads "x-ray=1200,meds=350.5" into expense lines.
func parseItems(s string) ([]model.ExpenseItem, error) {
	out := []model.ExpenseItem{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		name, cost, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad item %q (want name=cost)", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cost), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("bad cost in %q", part)
		}
		out = append(out, model.ExpenseItem{Item: name, Cost: model.Amount(v)})
	}
	return out, nil
}

func parseID(cmd string, args []string) (string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	id := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*id) == "" {
		return "", errors.New("need -id")
	}
	return *id, nil
}

// ------- date range -------

type rangeFlags struct{ from, to *string }

func addRangeFlags(fs *flag.FlagSet) rangeFlags {
	return rangeFlags{
		from: fs.String("from", "", "start date YYYY-MM-DD (inclusive)"),
		to:   fs.String("to", "", "end date YYYY-MM-DD (inclusive)"),
	}
}

func (r rangeFlags) parse() (from, to model.Date, err error) {
	if from, err = parseDate(*r.from); err != nil {
		return
	}
	if to, err = parseDate(*r.to); err != nil {
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		err = errors.New("-to is before -from")
	}
	return
}

// ------- pets -------

// petFlags holds the pet form. Only flags given on the command line are
// applied on edit.
type petFlags struct {
	fs *flag.FlagSet
	id string

	name, owner, contact, reason string
	admitted, discharged         string
	items                        string
	spotOn, spotOnDate           string
	deworming, dewormingDate     string
	vaccination, vaccinationDate string
	payment                      string
	partial                      float64
}

func parsePetFlags(cmd string, args []string) (*petFlags, error) {
	pf := &petFlags{fs: flag.NewFlagSet(cmd, flag.ContinueOnError)}
	fs := pf.fs
	fs.StringVar(&pf.id, "id", "", "pet id (edit only)")
	fs.StringVar(&pf.name, "name", "", "pet name")
	fs.StringVar(&pf.owner, "owner", "", "owner name")
	fs.StringVar(&pf.contact, "contact", "", "owner contact")
	fs.StringVar(&pf.reason, "reason", "", "reason of admission")
	fs.StringVar(&pf.admitted, "admitted", "", "admission date YYYY-MM-DD")
	fs.StringVar(&pf.discharged, "discharged", "", "discharge date YYYY-MM-DD")
	fs.StringVar(&pf.items, "items", "", "expense lines name=cost,...")
	fs.StringVar(&pf.spotOn, "spot-on", "", "spot-on status pending|completed")
	fs.StringVar(&pf.spotOnDate, "spot-on-date", "", "spot-on date")
	fs.StringVar(&pf.deworming, "deworming", "", "deworming status pending|completed")
	fs.StringVar(&pf.dewormingDate, "deworming-date", "", "deworming date")
	fs.StringVar(&pf.vaccination, "vaccination", "", "vaccination status pending|completed")
	fs.StringVar(&pf.vaccinationDate, "vaccination-date", "", "vaccination date")
	fs.StringVar(&pf.payment, "payment", "", "payment status paid|partially|unpaid")
	fs.Float64Var(&pf.partial, "partial", 0, "amount received when -payment partially")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return pf, nil
}

func (pf *petFlags) set(name string) bool {
	found := false
	pf.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// build applies the flags to base, or to a new record when base is nil.
func (pf *petFlags) build(base *model.PetRecord) (model.PetRecord, error) {
	var p model.PetRecord
	if base == nil {
		p = model.NewPetRecord(pf.name, pf.owner)
	} else {
		p = *base
	}
	if pf.id != "" {
		p.ID = pf.id
	}

	strs := []struct {
		flag string
		val  string
		dst  *string
	}{
		{"name", pf.name, &p.Name},
		{"owner", pf.owner, &p.Owner},
		{"contact", pf.contact, &p.Contact},
		{"reason", pf.reason, &p.ReasonOfAdmission},
	}
	for _, s := range strs {
		if pf.set(s.flag) {
			*s.dst = s.val
		}
	}

	statuses := []struct {
		flag string
		val  string
		dst  *string
	}{
		{"spot-on", pf.spotOn, &p.SpotOnStatus},
		{"deworming", pf.deworming, &p.DewormingStatus},
		{"vaccination", pf.vaccination, &p.VaccinationStatus},
	}
	for _, s := range statuses {
		if !pf.set(s.flag) {
			continue
		}
		if !validTreatment(s.val) {
			return p, fmt.Errorf("-%s must be pending or completed", s.flag)
		}
		*s.dst = s.val
	}

	dates := []struct {
		flag string
		val  string
		dst  *model.Date
	}{
		{"admitted", pf.admitted, &p.DateOfAdmission},
		{"discharged", pf.discharged, &p.DateOfDischarge},
		{"spot-on-date", pf.spotOnDate, &p.SpotOnDate},
		{"deworming-date", pf.dewormingDate, &p.DewormingDate},
		{"vaccination-date", pf.vaccinationDate, &p.VaccinationDate},
	}
	for _, d := range dates {
		if !pf.set(d.flag) {
			continue
		}
		v, err := parseDate(d.val)
		if err != nil {
			return p, err
		}
		*d.dst = v
	}

	if pf.set("items") {
		items, err := parseItems(pf.items)
		if err != nil {
			return p, err
		}
		p.Expenses = items
	}

	if pf.set("payment") {
		if !validPayment(pf.payment) {
			return p, errors.New("-payment must be paid, partially or unpaid")
		}
		p.SetPaymentStatus(model.PaymentStatus(pf.payment), model.Amount(pf.partial))
	} else if pf.set("partial") {
		return p, errors.New("-partial needs -payment partially")
	}
	return p, nil
}

// ------- expenses -------

func parseExpenseFlags(cmd string, args []string) (model.ExpenseRecord, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	category := fs.String("category", "", "category (e.g. transport, salary)")
	amount := fs.Float64("amount", 0, "amount")
	date := fs.String("date", "", "date YYYY-MM-DD (default today)")
	payment := fs.String("payment", "", "Cash|Online (default Cash)")
	desc := fs.String("desc", "", "description")
	ref := fs.String("ref", "", "reference id")
	if err := fs.Parse(args); err != nil {
		return model.ExpenseRecord{}, err
	}
	d, err := parseDate(*date)
	if err != nil {
		return model.ExpenseRecord{}, err
	}
	switch *payment {
	case "", model.PaymentTypeCash, model.PaymentTypeOnline:
	default:
		return model.ExpenseRecord{}, fmt.Errorf("-payment must be %s or %s", model.PaymentTypeCash, model.PaymentTypeOnline)
	}
	return model.ExpenseRecord{
		Category:    *category,
		Amount:      model.Amount(*amount),
		Description: *desc,
		Date:        d,
		PaymentType: *payment,
		ReferenceID: *ref,
	}, nil
}

// petRow is the compact listing shape.
type petRow struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Owner   string  `json:"owner"`
	Payment string  `json:"payment"`
	Total   float64 `json:"totalExpense"`
}

func petRows(pets []model.PetRecord) []petRow {
	rows := make([]petRow, 0, len(pets))
	for _, p := range pets {
		rows = append(rows, petRow{
			ID:      p.ID,
			Name:    p.Name,
			Owner:   p.Owner,
			Payment: string(p.PaymentStatus()),
			Total:   p.TotalExpense.Float(),
		})
	}
	return rows
}
