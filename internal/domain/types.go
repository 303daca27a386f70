package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trip groups competing plan versions for one holiday
type Trip struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Destination string     `json:"destination,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PlanVersion is one alternative full itinerary for a trip
type PlanVersion struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ItineraryDay is a single day of a plan version. DayNumber defines the
// chronological order; Date is informational only.
type ItineraryDay struct {
	ID            string     `json:"id"`
	PlanVersionID string     `json:"plan_version_id"`
	DayNumber     int        `json:"day_number"`
	Date          *time.Time `json:"date,omitempty"`
	Location      string     `json:"location"`
	Coordinates   *LatLng    `json:"location_coordinates,omitempty"`
}

// HasCoordinates reports whether the day carries a usable coordinate pair
func (d ItineraryDay) HasCoordinates() bool {
	return d.Coordinates != nil && d.Coordinates.Valid()
}

// CostRecord is a generic cost line item, optionally tied to a day
type CostRecord struct {
	ID             string          `json:"id"`
	PlanVersionID  string          `json:"plan_version_id"`
	ItineraryDayID *string         `json:"itinerary_day_id,omitempty"`
	Category       string          `json:"category"`
	Item           string          `json:"item"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
}

// Accommodation is a dedicated stay booking
type Accommodation struct {
	ID            string              `json:"id"`
	PlanVersionID string              `json:"plan_version_id"`
	Name          string              `json:"name"`
	Cost          decimal.NullDecimal `json:"cost"`
}

// Transport is a dedicated transport booking (car hire, flight, ferry...)
type Transport struct {
	ID            string              `json:"id"`
	PlanVersionID string              `json:"plan_version_id"`
	Type          string              `json:"type"`
	Provider      string              `json:"provider,omitempty"`
	Vehicle       string              `json:"vehicle,omitempty"`
	Cost          decimal.NullDecimal `json:"cost"`
}

// Label returns the display name: vehicle, then provider, then type.
func (t Transport) Label() string {
	switch {
	case t.Vehicle != "":
		return t.Vehicle
	case t.Provider != "":
		return t.Provider
	default:
		return t.Type
	}
}
