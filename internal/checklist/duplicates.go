package checklist

import (
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
)

// Classification splits the cost-sourced items that look like a second copy
// of an accommodation or transport booking.
type Classification struct {
	Candidates []domain.ChecklistItem `json:"candidates"`
	Safe       []domain.ChecklistItem `json:"safe"`
	Unsafe     []domain.ChecklistItem `json:"unsafe"`
	SafeTotal  decimal.Decimal        `json:"safe_total"`
}

// Classify finds cost items filed under accommodation or transport whose
// total equals that of an item seeded from the dedicated table. Matches the
// user has not touched are safe to delete; the rest are only reported.
//
// Correlation is by amount alone. Two distinct bookings sharing a price
// both match.
func Classify(items []domain.ChecklistItem) Classification {
	dedicatedTotals := map[string][]decimal.Decimal{}
	for _, it := range items {
		cat := NormalizeCategory(it.Category)
		if !dedicated(cat) || string(it.SourceType) != cat {
			continue
		}
		dedicatedTotals[cat] = append(dedicatedTotals[cat], it.TotalCost)
	}

	c := Classification{SafeTotal: decimal.Zero}
	for _, it := range items {
		if it.SourceType != domain.SourceCost || !dedicated(it.Category) {
			continue
		}
		if !containsAmount(dedicatedTotals[NormalizeCategory(it.Category)], it.TotalCost) {
			continue
		}
		c.Candidates = append(c.Candidates, it)
		if untouched(it) {
			c.Safe = append(c.Safe, it)
			c.SafeTotal = c.SafeTotal.Add(it.TotalCost)
		} else {
			c.Unsafe = append(c.Unsafe, it)
		}
	}
	return c
}

// SafeIDs returns the ids of the items that may be deleted.
func (c Classification) SafeIDs() []string {
	ids := make([]string, len(c.Safe))
	for i, it := range c.Safe {
		ids[i] = it.ID
	}
	return ids
}

func containsAmount(amounts []decimal.Decimal, v decimal.Decimal) bool {
	for _, a := range amounts {
		if a.Equal(v) {
			return true
		}
	}
	return false
}

// untouched reports whether the user left the item as seeded. Any text at
// all in reference, url or notes counts as an edit, whitespace included.
func untouched(it domain.ChecklistItem) bool {
	return it.AmountPaid.IsZero() &&
		it.BookingReference == "" &&
		it.BookingURL == "" &&
		it.Notes == ""
}

// Totals sums the planned and paid amounts of a checklist.
func Totals(items []domain.ChecklistItem) (total, paid decimal.Decimal) {
	total, paid = decimal.Zero, decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalCost)
		paid = paid.Add(it.AmountPaid)
	}
	return total, paid
}
