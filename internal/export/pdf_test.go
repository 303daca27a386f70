package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
)

func TestActivePlan(t *testing.T) {
	plans := []domain.PlanVersion{{ID: "a"}, {ID: "b", IsActive: true}}
	if p, ok := ActivePlan(plans); !ok || p.ID != "b" {
		t.Fatalf("expected the active plan, got %+v", p)
	}
	if p, ok := ActivePlan(plans[:1]); !ok || p.ID != "a" {
		t.Fatalf("expected the first plan, got %+v", p)
	}
	if _, ok := ActivePlan(nil); ok {
		t.Fatal("no plans should report false")
	}
}

func TestMapURL(t *testing.T) {
	got := MapURL(domain.LatLng{Lat: 25.0782266, Lng: -77.3383438})
	if !strings.Contains(got, "mlat=25.07823&mlon=-77.33834") {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestWritePDF(t *testing.T) {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	nassau := domain.LatLng{Lat: 25.0782266, Lng: -77.3383438}

	var days []domain.ItineraryDay
	for i := 1; i <= 14; i++ {
		d := domain.ItineraryDay{ID: string(rune('a' + i)), DayNumber: i, Date: &start, Location: "Nassau, Bahamas"}
		if i%2 == 0 {
			d.Coordinates = &nassau
		}
		days = append(days, d)
	}

	it := &Itinerary{
		Trip: domain.Trip{Name: "Florida & Bahamas", Destination: "Florida", StartDate: &start},
		Plan: domain.PlanVersion{Name: "Cruise + parks", Currency: "GBP"},
		Days: days,
		Checklist: []domain.ChecklistItem{
			{Name: "Villa", Category: "accommodation", TotalCost: decimal.NewFromInt(1400), AmountPaid: decimal.NewFromInt(200),
				BookingStatus: domain.StatusBooked},
			{Name: "Café voucher £20", Category: "food", TotalCost: decimal.NewFromInt(20)},
		},
		Generated: start,
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, it); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF (%d bytes)", buf.Len())
	}
	if !bytes.Contains(buf.Bytes(), []byte("openstreetmap.org")) {
		t.Fatal("map links should be embedded as link annotations")
	}
}
