// Package model defines the records exchanged with the billing API.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Treatment status values used by spot-on, deworming and vaccination fields.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// PaymentStatus is the derived, mutually exclusive payment state of a pet.
type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartially PaymentStatus = "partially"
	PaymentUnpaid    PaymentStatus = "unpaid"
)

// Amount is a money value. It accepts JSON numbers and numeric strings;
// null, empty or unparsable input decodes to 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(v)
	return nil
}

// Float returns the amount as float64.
func (a Amount) Float() float64 { return float64(a) }

// Date is a calendar instant that decodes RFC 3339 timestamps as well as
// bare YYYY-MM-DD dates. null and "" decode to the zero value.
type Date struct{ time.Time }

// DateLayout is the bare date form used by the API and by CLI flags.
const DateLayout = "2006-01-02"

// ParseDate parses RFC 3339 or YYYY-MM-DD input.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date{t.UTC()}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// MustDate is ParseDate for literals; it panics on bad input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Day truncates the date to midnight UTC.
func (d Date) Day() time.Time {
	y, m, dd := d.UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateLayout)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ExpenseItem is one billed line on a pet.
type ExpenseItem struct {
	Item string `json:"item"`
	Cost Amount `json:"cost"`
}

// PartialPayment records an amount received before full settlement.
type PartialPayment struct {
	IsPartiallyPaid bool   `json:"isPartiallyPaid"`
	Amount          Amount `json:"amount"`
}

// PetRecord is an admitted pet with its treatment and billing state.
type PetRecord struct {
	ID                string         `json:"_id,omitempty"`
	Name              string         `json:"name"`
	Owner             string         `json:"owner"`
	Contact           string         `json:"contact"`
	ReasonOfAdmission string         `json:"reasonOfAdmission"`
	DateOfAdmission   Date           `json:"dateOfAdmission"`
	DateOfDischarge   Date           `json:"dateOfDischarge"`
	Expenses          []ExpenseItem  `json:"expenses"`
	SpotOnStatus      string         `json:"spotOnStatus"`
	SpotOnDate        Date           `json:"spotOnDate"`
	DewormingStatus   string         `json:"dewormingStatus"`
	DewormingDate     Date           `json:"dewormingDate"`
	VaccinationStatus string         `json:"vaccinationStatus"`
	VaccinationDate   Date           `json:"vaccinationDate"`
	Paid              bool           `json:"paid"`
	PartiallyPaid     PartialPayment `json:"partiallyPaid"`
	TotalExpense      Amount         `json:"totalExpense"`
}

// NewPetRecord returns a record with treatment statuses set to pending.
func NewPetRecord(name, owner string) PetRecord {
	return PetRecord{
		Name:              name,
		Owner:             owner,
		Expenses:          []ExpenseItem{},
		SpotOnStatus:      StatusPending,
		DewormingStatus:   StatusPending,
		VaccinationStatus: StatusPending,
	}
}

// PaymentStatus classifies the record: paid wins over partially paid.
func (p PetRecord) PaymentStatus() PaymentStatus {
	switch {
	case p.Paid:
		return PaymentPaid
	case p.PartiallyPaid.IsPartiallyPaid:
		return PaymentPartially
	default:
		return PaymentUnpaid
	}
}

// SetPaymentStatus switches the payment state. Any previous partial amount is
// dropped; amount is kept only for PaymentPartially.
func (p *PetRecord) SetPaymentStatus(s PaymentStatus, amount Amount) {
	switch s {
	case PaymentPaid:
		p.Paid = true
		p.PartiallyPaid = PartialPayment{}
	case PaymentPartially:
		p.Paid = false
		p.PartiallyPaid = PartialPayment{IsPartiallyPaid: true, Amount: amount}
	default:
		p.Paid = false
		p.PartiallyPaid = PartialPayment{}
	}
}

// Attachment is a receipt file stored alongside an expense.
type Attachment struct {
	Filename string `json:"filename"`
}

// ExpenseRecord is an operating expense in the general ledger.
type ExpenseRecord struct {
	ID          string      `json:"_id,omitempty"`
	Category    string      `json:"category"`
	Amount      Amount      `json:"amount"`
	Description string      `json:"description"`
	Date        Date        `json:"date"`
	PaymentType string      `json:"paymentType"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	ReferenceID string      `json:"referenceId,omitempty"`
}

// ExpensePage is one page of the ledger together with the total record count.
type ExpensePage struct {
	Data  []ExpenseRecord `json:"data"`
	Total int             `json:"total"`
}

// Payment types offered by the expense form.
const (
	PaymentTypeCash   = "Cash"
	PaymentTypeOnline = "Online"
)
