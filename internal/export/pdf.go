// Package export renders a printable itinerary of a trip's active plan.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pbaille/tripplan/internal/checklist"
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Itinerary is everything printed for one plan version
type Itinerary struct {
	Trip      domain.Trip
	Plan      domain.PlanVersion
	Days      []domain.ItineraryDay
	Checklist []domain.ChecklistItem
	Generated time.Time
}

// Store is what Load reads from
type Store interface {
	GetTrip(ctx context.Context, id string) (*domain.Trip, error)
	ListPlanVersions(ctx context.Context, tripID string) ([]domain.PlanVersion, error)
	ListDays(ctx context.Context, planVersionID string) ([]domain.ItineraryDay, error)
	ListChecklistItems(ctx context.Context, planVersionID string) ([]domain.ChecklistItem, error)
}

// ActivePlan picks the plan flagged active, or the oldest one.
func ActivePlan(plans []domain.PlanVersion) (domain.PlanVersion, bool) {
	for _, p := range plans {
		if p.IsActive {
			return p, true
		}
	}
	if len(plans) == 0 {
		return domain.PlanVersion{}, false
	}
	return plans[0], true
}

// Load gathers the itinerary of a trip's active plan.
func Load(ctx context.Context, s Store, tripID string) (*Itinerary, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	plans, err := s.ListPlanVersions(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list plan versions: %w", err)
	}
	plan, ok := ActivePlan(plans)
	if !ok {
		return nil, fmt.Errorf("trip %s has no plan version: %w", tripID, domain.ErrNotFound)
	}
	days, err := s.ListDays(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	items, err := s.ListChecklistItems(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	return &Itinerary{Trip: *trip, Plan: plan, Days: days, Checklist: items, Generated: time.Now()}, nil
}

// MapURL links a coordinate to OpenStreetMap.
func MapURL(ll domain.LatLng) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.5f&mlon=%.5f#map=12/%.5f/%.5f", ll.Lat, ll.Lng, ll.Lat, ll.Lng)
}

const qrSize = 18.0

// WritePDF renders the itinerary as an A4 PDF. Days with coordinates get a
// QR code linking to the map.
func WritePDF(w io.Writer, it *Itinerary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(it.Trip.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, tr(subtitle(it)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, tr("Plan: "+it.Plan.Name), "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	imgOpts := gofpdf.ImageOptions{ImageType: "png"}
	for _, d := range it.Days {
		_, pageH := pdf.GetPageSize()
		if pdf.GetY()+qrSize+4 > pageH-15 {
			pdf.AddPage()
		}
		top := pdf.GetY()

		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(150, 6, tr(fmt.Sprintf("Day %d: %s", d.DayNumber, d.Location)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(150, 5, tr(dayDetail(d)), "", 1, "L", false, 0, "")

		if d.HasCoordinates() {
			link := MapURL(*d.Coordinates)
			png, err := qrcode.Encode(link, qrcode.Medium, 128)
			if err != nil {
				return fmt.Errorf("encode qr for day %d: %w", d.DayNumber, err)
			}
			name := "day-" + d.ID
			pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(png))
			pdf.ImageOptions(name, 195-qrSize, top, qrSize, qrSize, false, imgOpts, 0, link)
			pdf.SetY(top + qrSize + 2)
		} else {
			pdf.Ln(3)
		}
	}

	if len(it.Checklist) > 0 {
		writeChecklist(pdf, tr, it)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeChecklist(pdf *gofpdf.Fpdf, tr func(string) string, it *Itinerary) {
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "Booking checklist", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	widths := []float64{28, 32, 70, 25, 25}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 245)
	for i, h := range []string{"Status", "Category", "Item", "Cost", "Paid"} {
		align := "L"
		if i >= 3 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 6, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	currency := it.Plan.Currency
	for _, item := range it.Checklist {
		pdf.CellFormat(widths[0], 6, statusLabel(item.BookingStatus), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(item.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(item.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, item.TotalCost.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, item.AmountPaid.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	total, paid := checklist.Totals(it.Checklist)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, tr("Total ("+currency+")"), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 6, total.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 6, paid.StringFixed(2), "1", 1, "R", false, 0, "")
}

func subtitle(it *Itinerary) string {
	s := it.Trip.Destination
	if it.Trip.StartDate != nil {
		s += "  " + it.Trip.StartDate.Format("2 Jan 2006")
		if it.Trip.EndDate != nil {
			s += " - " + it.Trip.EndDate.Format("2 Jan 2006")
		}
	}
	if !it.Generated.IsZero() {
		s += "  (printed " + it.Generated.Format("2 Jan 2006") + ")"
	}
	return s
}

func dayDetail(d domain.ItineraryDay) string {
	detail := ""
	if d.Date != nil {
		detail = d.Date.Format("Mon 2 Jan 2006")
	}
	if d.HasCoordinates() {
		if detail != "" {
			detail += "  "
		}
		detail += fmt.Sprintf("%.4f, %.4f", d.Coordinates.Lat, d.Coordinates.Lng)
	}
	return detail
}

func statusLabel(s domain.BookingStatus) string {
	switch s {
	case domain.StatusBooked:
		return "Booked"
	case domain.StatusConfirmed:
		return "Confirmed"
	default:
		return "Not booked"
	}
}
