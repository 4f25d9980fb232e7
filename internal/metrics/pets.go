// Package metrics derives dashboard figures from fetched pets and ledger
// expenses. Every function is pure: the same input always yields the same output.
package metrics

import "github.com/ycf/billing-portal/internal/model"

// Partition splits pets by payment status. The three slices are disjoint and
// together hold every input record, in input order.
type Partition struct {
	Paid      []model.PetRecord
	Partially []model.PetRecord
	Unpaid    []model.PetRecord
}

// PartitionByPayment classifies each pet with PetRecord.PaymentStatus.
func PartitionByPayment(pets []model.PetRecord) Partition {
	var p Partition
	for _, pet := range pets {
		switch pet.PaymentStatus() {
		case model.PaymentPaid:
			p.Paid = append(p.Paid, pet)
		case model.PaymentPartially:
			p.Partially = append(p.Partially, pet)
		default:
			p.Unpaid = append(p.Unpaid, pet)
		}
	}
	return p
}

// Filter values accepted by FilterByStatus.
const (
	FilterAll       = "all"
	FilterPaid      = "paid"
	FilterPartially = "partially"
	FilterUnpaid    = "unpaid"
)

// FilterByStatus keeps pets matching filter; unknown filters behave like FilterAll.
func FilterByStatus(pets []model.PetRecord, filter string) []model.PetRecord {
	var want model.PaymentStatus
	switch filter {
	case FilterPaid:
		want = model.PaymentPaid
	case FilterPartially:
		want = model.PaymentPartially
	case FilterUnpaid:
		want = model.PaymentUnpaid
	default:
		return append([]model.PetRecord(nil), pets...)
	}
	var out []model.PetRecord
	for _, pet := range pets {
		if pet.PaymentStatus() == want {
			out = append(out, pet)
		}
	}
	return out
}

// AmountCollected sums totalExpense of paid pets and the partial amount of
// partially paid pets.
func AmountCollected(pets []model.PetRecord) float64 {
	var sum float64
	for _, pet := range pets {
		switch pet.PaymentStatus() {
		case model.PaymentPaid:
			sum += pet.TotalExpense.Float()
		case model.PaymentPartially:
			sum += pet.PartiallyPaid.Amount.Float()
		}
	}
	return sum
}

// AmountPending sums totalExpense minus the partial amount over every pet
// that is not fully paid. The per-pet figure is not floored: an overpaid
// partial payment contributes a negative amount.
func AmountPending(pets []model.PetRecord) float64 {
	var sum float64
	for _, pet := range pets {
		if pet.Paid {
			continue
		}
		sum += pet.TotalExpense.Float() - pet.PartiallyPaid.Amount.Float()
	}
	return sum
}

// PetSummary is the set of dashboard cards for the pet list.
type PetSummary struct {
	Total     int     `json:"totalPets"`
	Paid      int     `json:"paid"`
	Partially int     `json:"partiallyPaid"`
	Unpaid    int     `json:"unpaid"`
	Collected float64 `json:"amountCollected"`
	Pending   float64 `json:"pendingAmount"`
}

// SummarizePets computes the pet dashboard cards.
func SummarizePets(pets []model.PetRecord) PetSummary {
	p := PartitionByPayment(pets)
	return PetSummary{
		Total:     len(pets),
		Paid:      len(p.Paid),
		Partially: len(p.Partially),
		Unpaid:    len(p.Unpaid),
		Collected: AmountCollected(pets),
		Pending:   AmountPending(pets),
	}
}
