// Package importer loads a trip exported as JSON into the store. Source ids
// are replaced by fresh ones and every reference is remapped.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Document is the export format
type Document struct {
	Trip           TripDoc          `json:"trip"`
	PlanVersions   []PlanVersionDoc `json:"planVersions"`
	ItineraryDays  []DayDoc         `json:"itineraryDays"`
	Accommodations []AccDoc         `json:"accommodations"`
	Transport      []TransportDoc   `json:"transport"`
	Costs          []CostDoc        `json:"costs"`
	ChecklistItems []ChecklistDoc   `json:"checklistItems"`
}

type TripDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type PlanVersionDoc struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	IsActive bool   `json:"is_active"`
}

type DayDoc struct {
	ID            string          `json:"id"`
	PlanVersionID string          `json:"plan_version_id"`
	DayNumber     int             `json:"day_number"`
	Date          string          `json:"date"`
	Location      string          `json:"location"`
	Coordinates   json.RawMessage `json:"location_coordinates"`
}

type AccDoc struct {
	ID            string              `json:"id"`
	PlanVersionID string              `json:"plan_version_id"`
	Name          string              `json:"name"`
	Cost          decimal.NullDecimal `json:"cost"`
}

type TransportDoc struct {
	ID            string              `json:"id"`
	PlanVersionID string              `json:"plan_version_id"`
	Type          string              `json:"type"`
	Provider      string              `json:"provider"`
	Vehicle       string              `json:"vehicle"`
	Cost          decimal.NullDecimal `json:"cost"`
}

type CostDoc struct {
	ID             string          `json:"id"`
	PlanVersionID  string          `json:"plan_version_id"`
	ItineraryDayID string          `json:"itinerary_day_id"`
	Category       string          `json:"category"`
	Item           string          `json:"item"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

type ChecklistDoc struct {
	PlanVersionID    string               `json:"plan_version_id"`
	Category         string               `json:"category"`
	Name             string               `json:"name"`
	SourceType       domain.SourceType    `json:"source_type"`
	SourceID         string               `json:"source_id"`
	TotalCost        decimal.NullDecimal  `json:"total_cost"`
	AmountPaid       decimal.NullDecimal  `json:"amount_paid"`
	BookingStatus    domain.BookingStatus `json:"booking_status"`
	BookingReference string               `json:"booking_reference"`
	BookingURL       string               `json:"booking_url"`
	Notes            string               `json:"notes"`
	PaymentType      string               `json:"payment_type"`
}

// Store is what an import writes to
type Store interface {
	CreateTrip(ctx context.Context, t domain.Trip) (*domain.Trip, error)
	CreatePlanVersion(ctx context.Context, pv domain.PlanVersion) (*domain.PlanVersion, error)
	AddDay(ctx context.Context, d domain.ItineraryDay) (*domain.ItineraryDay, error)
	AddAccommodation(ctx context.Context, a domain.Accommodation) (*domain.Accommodation, error)
	AddTransport(ctx context.Context, t domain.Transport) (*domain.Transport, error)
	AddCost(ctx context.Context, c domain.CostRecord) (*domain.CostRecord, error)
	AddChecklistItem(ctx context.Context, item domain.ChecklistItem) (*domain.ChecklistItem, error)
}

// Result names what was created
type Result struct {
	TripID         string   `json:"trip_id"`
	PlanVersionIDs []string `json:"plan_version_ids"`
	Days           int      `json:"days"`
	Accommodations int      `json:"accommodations"`
	Transport      int      `json:"transport"`
	Costs          int      `json:"costs"`
	ChecklistItems int      `json:"checklist_items"`
}

// Decode reads a Document
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode import: %w", err)
	}
	return &doc, nil
}

type idMap map[string]string

// Importer writes documents into a store
type Importer struct {
	store  Store
	logger *zap.Logger
}

// New creates an Importer
func New(store Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// Import creates the trip and everything under it. It stops at the first
// failing write; rows written before it stay.
func (im *Importer) Import(ctx context.Context, doc *Document) (*Result, error) {
	var (
		res   Result
		plans = idMap{}
		days  = idMap{}
		links = map[domain.SourceType]idMap{
			domain.SourceAccommodation: {},
			domain.SourceTransport:     {},
			domain.SourceCost:          {},
		}
	)

	trip, err := im.store.CreateTrip(ctx, domain.Trip{
		Name:        doc.Trip.Name,
		Destination: doc.Trip.Destination,
		StartDate:   parseDate(doc.Trip.StartDate),
		EndDate:     parseDate(doc.Trip.EndDate),
	})
	if err != nil {
		return nil, fmt.Errorf("import trip: %w", err)
	}
	res.TripID = trip.ID

	for _, p := range doc.PlanVersions {
		pv, err := im.store.CreatePlanVersion(ctx, domain.PlanVersion{
			TripID: trip.ID, Name: p.Name, Currency: p.Currency, IsActive: p.IsActive,
		})
		if err != nil {
			return nil, fmt.Errorf("import plan version %s: %w", p.ID, err)
		}
		plans[p.ID] = pv.ID
		res.PlanVersionIDs = append(res.PlanVersionIDs, pv.ID)
	}

	for _, d := range doc.ItineraryDays {
		planID, err := plans.lookup("plan version", d.PlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("import day %s: %w", d.ID, err)
		}
		day := domain.ItineraryDay{
			PlanVersionID: planID,
			DayNumber:     d.DayNumber,
			Date:          parseDate(d.Date),
			Location:      d.Location,
		}
		if ll, ok := domain.ParseLatLng(d.Coordinates); ok {
			day.Coordinates = &ll
		}
		created, err := im.store.AddDay(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("import day %s: %w", d.ID, err)
		}
		days[d.ID] = created.ID
		res.Days++
	}

	for _, a := range doc.Accommodations {
		planID, err := plans.lookup("plan version", a.PlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("import accommodation %s: %w", a.ID, err)
		}
		created, err := im.store.AddAccommodation(ctx, domain.Accommodation{PlanVersionID: planID, Name: a.Name, Cost: a.Cost})
		if err != nil {
			return nil, fmt.Errorf("import accommodation %s: %w", a.ID, err)
		}
		links[domain.SourceAccommodation][a.ID] = created.ID
		res.Accommodations++
	}

	for _, t := range doc.Transport {
		planID, err := plans.lookup("plan version", t.PlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("import transport %s: %w", t.ID, err)
		}
		created, err := im.store.AddTransport(ctx, domain.Transport{
			PlanVersionID: planID, Type: t.Type, Provider: t.Provider, Vehicle: t.Vehicle, Cost: t.Cost,
		})
		if err != nil {
			return nil, fmt.Errorf("import transport %s: %w", t.ID, err)
		}
		links[domain.SourceTransport][t.ID] = created.ID
		res.Transport++
	}

	for _, c := range doc.Costs {
		planID, err := plans.lookup("plan version", c.PlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("import cost %s: %w", c.ID, err)
		}
		rec := domain.CostRecord{
			PlanVersionID: planID, Category: c.Category, Item: c.Item, Amount: c.Amount, Currency: c.Currency,
		}
		if c.ItineraryDayID != "" {
			if dayID, ok := days[c.ItineraryDayID]; ok {
				rec.ItineraryDayID = &dayID
			}
		}
		created, err := im.store.AddCost(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("import cost %s: %w", c.ID, err)
		}
		links[domain.SourceCost][c.ID] = created.ID
		res.Costs++
	}

	for i, c := range doc.ChecklistItems {
		planID, err := plans.lookup("plan version", c.PlanVersionID)
		if err != nil {
			return nil, fmt.Errorf("import checklist item %d: %w", i, err)
		}
		item := domain.ChecklistItem{
			PlanVersionID:    planID,
			Category:         c.Category,
			Name:             c.Name,
			TotalCost:        orZero(c.TotalCost),
			AmountPaid:       orZero(c.AmountPaid),
			BookingStatus:    c.BookingStatus,
			BookingReference: c.BookingReference,
			BookingURL:       c.BookingURL,
			Notes:            c.Notes,
			PaymentType:      c.PaymentType,
		}
		// Links to records missing from the document turn the item manual.
		if c.SourceID != "" {
			if newID, ok := links[c.SourceType][c.SourceID]; ok {
				item.SourceType = c.SourceType
				item.SourceID = &newID
			}
		}
		if _, err := im.store.AddChecklistItem(ctx, item); err != nil {
			return nil, fmt.Errorf("import checklist item %d: %w", i, err)
		}
		res.ChecklistItems++
	}

	im.logger.Info("trip imported",
		zap.String("trip_id", res.TripID),
		zap.Int("plan_versions", len(res.PlanVersionIDs)),
		zap.Int("days", res.Days),
		zap.Int("checklist_items", res.ChecklistItems))
	return &res, nil
}

func (m idMap) lookup(kind, id string) (string, error) {
	if newID, ok := m[id]; ok {
		return newID, nil
	}
	return "", fmt.Errorf("unknown %s %q", kind, id)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
