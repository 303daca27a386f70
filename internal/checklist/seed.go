// Package checklist keeps a plan version's booking checklist in step with
// its accommodation, transport and cost records.
package checklist

import (
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
)

// Category names with a dedicated booking table
const (
	CategoryAccommodation = "accommodation"
	CategoryTransport     = "transport"
)

// NormalizeCategory lowercases and trims a category for comparison.
func NormalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// dedicated reports whether a cost category is already seeded from its own
// table and must not be drafted again from the generic costs.
func dedicated(category string) bool {
	c := NormalizeCategory(category)
	return c == CategoryAccommodation || c == CategoryTransport
}

// Seed drafts the checklist items missing for a plan version. Records whose
// link is already in existing are skipped, as are generic costs filed under
// accommodation or transport. The result never holds the same link twice.
func Seed(planVersionID string, existing domain.LinkSet, accs []domain.Accommodation,
	transport []domain.Transport, costs []domain.CostRecord) []domain.ChecklistDraft {

	seen := domain.NewLinkSet()
	for k := range existing {
		seen.Add(k)
	}

	var drafts []domain.ChecklistDraft
	add := func(d domain.ChecklistDraft) {
		if seen.Has(d.Link()) {
			return
		}
		seen.Add(d.Link())
		d.PlanVersionID = planVersionID
		d.BookingStatus = domain.StatusNotBooked
		d.PaymentType = domain.PaymentFull
		drafts = append(drafts, d)
	}

	for _, a := range accs {
		add(domain.ChecklistDraft{
			Category:   CategoryAccommodation,
			Name:       a.Name,
			SourceType: domain.SourceAccommodation,
			SourceID:   a.ID,
			TotalCost:  orZero(a.Cost),
		})
	}
	for _, t := range transport {
		add(domain.ChecklistDraft{
			Category:   CategoryTransport,
			Name:       t.Label(),
			SourceType: domain.SourceTransport,
			SourceID:   t.ID,
			TotalCost:  orZero(t.Cost),
		})
	}
	for _, c := range costs {
		if dedicated(c.Category) {
			continue
		}
		category := strings.TrimSpace(c.Category)
		if category == "" {
			category = domain.CategoryOther
		}
		add(domain.ChecklistDraft{
			Category:   category,
			Name:       c.Item,
			SourceType: domain.SourceCost,
			SourceID:   c.ID,
			TotalCost:  c.Amount,
		})
	}
	return drafts
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
