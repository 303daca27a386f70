package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType identifies which table a checklist item was seeded from.
// Manual items have an empty source type.
type SourceType string

const (
	SourceAccommodation SourceType = "accommodation"
	SourceTransport     SourceType = "transport"
	SourceCost          SourceType = "cost"
)

// BookingStatus tracks progress of a checklist item
type BookingStatus string

const (
	StatusNotBooked BookingStatus = "not_booked"
	StatusBooked    BookingStatus = "booked"
	StatusConfirmed BookingStatus = "confirmed"
)

var statusOrder = []BookingStatus{StatusNotBooked, StatusBooked, StatusConfirmed}

// Next returns the following status in the cycle
// not_booked -> booked -> confirmed -> not_booked. Unknown values restart
// the cycle at not_booked.
func (s BookingStatus) Next() BookingStatus {
	idx := -1
	for i, st := range statusOrder {
		if st == s {
			idx = i
			break
		}
	}
	return statusOrder[(idx+1)%len(statusOrder)]
}

// PaymentFull is the default payment type for seeded and manual items.
const PaymentFull = "full"

// CategoryOther is used when an item or cost carries no category.
const CategoryOther = "other"

// ChecklistItem is a trackable booking/payment line
type ChecklistItem struct {
	ID               string          `json:"id"`
	PlanVersionID    string          `json:"plan_version_id"`
	Category         string          `json:"category"`
	Name             string          `json:"name"`
	SourceType       SourceType      `json:"source_type,omitempty"`
	SourceID         *string         `json:"source_id,omitempty"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	BookingStatus    BookingStatus   `json:"booking_status"`
	BookingReference string          `json:"booking_reference,omitempty"`
	BookingURL       string          `json:"booking_url,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	PaymentType      string          `json:"payment_type,omitempty"`
	SortOrder        int             `json:"sort_order"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Manual reports whether the item was entered by hand rather than seeded.
func (c ChecklistItem) Manual() bool {
	return c.SourceID == nil || c.SourceType == ""
}

// Link returns the seeding identity of the item. ok is false for manual items.
func (c ChecklistItem) Link() (LinkKey, bool) {
	if c.Manual() {
		return LinkKey{}, false
	}
	return LinkKey{SourceType: c.SourceType, SourceID: *c.SourceID}, true
}

// ChecklistDraft is a checklist item that has not been stored yet
type ChecklistDraft struct {
	PlanVersionID string          `json:"plan_version_id"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	SourceType    SourceType      `json:"source_type"`
	SourceID      string          `json:"source_id"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	BookingStatus BookingStatus   `json:"booking_status"`
	PaymentType   string          `json:"payment_type"`
}

// Link returns the seeding identity of the draft.
func (d ChecklistDraft) Link() LinkKey {
	return LinkKey{SourceType: d.SourceType, SourceID: d.SourceID}
}

// LinkKey is the (source type, source id) pair that, scoped to a plan
// version, uniquely identifies a seeded checklist item.
type LinkKey struct {
	SourceType SourceType
	SourceID   string
}

func (k LinkKey) String() string {
	return string(k.SourceType) + ":" + k.SourceID
}

// LinkSet is a set of LinkKeys
type LinkSet map[LinkKey]struct{}

// NewLinkSet builds a set from the given keys.
func NewLinkSet(keys ...LinkKey) LinkSet {
	s := make(LinkSet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts k into the set.
func (s LinkSet) Add(k LinkKey) { s[k] = struct{}{} }

// Has reports whether k is in the set.
func (s LinkSet) Has(k LinkKey) bool {
	_, ok := s[k]
	return ok
}
