package importer_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/pbaille/tripplan/internal/importer"
	"github.com/pbaille/tripplan/internal/store"
	"github.com/shopspring/decimal"
)

const florida = `{
  "trip": {"id": "t1", "name": "Florida 2026", "destination": "Florida", "start_date": "2026-04-01"},
  "planVersions": [{"id": "p1", "name": "Cruise + parks", "currency": "GBP", "is_active": true}],
  "itineraryDays": [
    {"id": "d1", "plan_version_id": "p1", "day_number": 1, "date": "2026-04-01", "location": "Orlando",
     "location_coordinates": {"lat": 28.54, "lng": -81.38}},
    {"id": "d2", "plan_version_id": "p1", "day_number": 2, "location": "Sea Day",
     "location_coordinates": "{\"lat\": 26.1, \"lng\": -79.9}"},
    {"id": "d3", "plan_version_id": "p1", "day_number": 3, "location": "Nassau, Bahamas", "location_coordinates": null}
  ],
  "accommodations": [{"id": "a1", "plan_version_id": "p1", "name": "Villa", "cost": 1400}],
  "transport": [{"id": "tr1", "plan_version_id": "p1", "type": "car", "provider": "Alamo", "cost": null}],
  "costs": [{"id": "c1", "plan_version_id": "p1", "itinerary_day_id": "d1", "category": "food", "item": "Dining", "amount": "310.50"}],
  "checklistItems": [
    {"plan_version_id": "p1", "category": "accommodation", "name": "Villa", "source_type": "accommodation",
     "source_id": "a1", "total_cost": 1400, "amount_paid": 200, "booking_status": "booked", "notes": "deposit"},
    {"plan_version_id": "p1", "category": "other", "name": "ESTA", "total_cost": 21}
  ]
}`

func TestImportRemapsReferences(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "trip.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	doc, err := importer.Decode(strings.NewReader(florida))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := importer.New(s, nil).Import(ctx, doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.PlanVersionIDs) != 1 || res.Days != 3 || res.Costs != 1 || res.ChecklistItems != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	plan := res.PlanVersionIDs[0]
	if plan == "p1" {
		t.Fatal("source ids must be replaced")
	}

	days, err := s.ListDays(ctx, plan)
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if !days[0].HasCoordinates() || !days[1].HasCoordinates() || days[2].HasCoordinates() {
		t.Fatalf("coordinates not imported as given: %+v", days)
	}
	if days[0].Date == nil || days[0].Date.Format("2006-01-02") != "2026-04-01" {
		t.Fatalf("date not imported: %v", days[0].Date)
	}

	costs, _ := s.ListCosts(ctx, plan)
	if len(costs) != 1 || costs[0].ItineraryDayID == nil || *costs[0].ItineraryDayID != days[0].ID {
		t.Fatalf("cost day link not remapped: %+v", costs)
	}
	if !costs[0].Amount.Equal(decimal.RequireFromString("310.5")) {
		t.Fatalf("amount = %s", costs[0].Amount)
	}

	accs, _ := s.ListAccommodations(ctx, plan)
	links, err := s.ChecklistLinks(ctx, plan)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if !links.Has(domain.LinkKey{SourceType: domain.SourceAccommodation, SourceID: accs[0].ID}) {
		t.Fatalf("checklist source not remapped: %v", links)
	}

	items, _ := s.ListChecklistItems(ctx, plan)
	if items[0].BookingStatus != domain.StatusBooked || !items[0].AmountPaid.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("checklist fields not imported: %+v", items[0])
	}
	if !items[1].Manual() {
		t.Fatalf("item without a source should stay manual: %+v", items[1])
	}
}

func TestImportRejectsUnknownPlan(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "trip.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	doc := &importer.Document{
		Trip:          importer.TripDoc{Name: "Broken"},
		ItineraryDays: []importer.DayDoc{{ID: "d1", PlanVersionID: "nope", DayNumber: 1}},
	}
	if _, err := importer.New(s, nil).Import(context.Background(), doc); err == nil {
		t.Fatal("expected an error for a day pointing at an unknown plan version")
	}
}
