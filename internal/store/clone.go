package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
)

// ClonePlanVersion copies a plan version with its days, accommodations,
// transport and costs into a new inactive plan of the same trip. Cost links
// to days follow the copied days. The checklist is not copied; seeding the
// clone rebuilds it. An empty name becomes "<name> (Copy)".
func (s *Store) ClonePlanVersion(ctx context.Context, id, name string) (*domain.PlanVersion, error) {
	src, err := s.GetPlanVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	days, err := s.ListDays(ctx, id)
	if err != nil {
		return nil, err
	}
	accs, err := s.ListAccommodations(ctx, id)
	if err != nil {
		return nil, err
	}
	transport, err := s.ListTransport(ctx, id)
	if err != nil {
		return nil, err
	}
	costs, err := s.ListCosts(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = src.Name + " (Copy)"
	}
	pv := domain.PlanVersion{
		ID:        newID(""),
		TripID:    src.TripID,
		Name:      name,
		Currency:  src.Currency,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clone: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO plan_versions (id, trip_id, name, currency, is_active, created_at) VALUES (?, ?, ?, ?, 0, ?)",
		pv.ID, pv.TripID, pv.Name, pv.Currency, pv.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert plan version: %w", err)
	}

	dayIDs := make(map[string]string, len(days))
	for _, d := range days {
		newDayID := newID("")
		coords, err := encodeCoords(d.Coordinates)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO itinerary_days (id, plan_version_id, day_number, day_date, location, location_coordinates)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			newDayID, pv.ID, d.DayNumber, formatDate(d.Date), d.Location, coords,
		); err != nil {
			return nil, fmt.Errorf("copy day %d: %w", d.DayNumber, err)
		}
		dayIDs[d.ID] = newDayID
	}

	now := time.Now()
	for _, a := range accs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO accommodations (id, plan_version_id, name, cost, created_at) VALUES (?, ?, ?, ?, ?)",
			newID(""), pv.ID, a.Name, a.Cost, now,
		); err != nil {
			return nil, fmt.Errorf("copy accommodation %s: %w", a.ID, err)
		}
	}
	for _, t := range transport {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO transport (id, plan_version_id, type, provider, vehicle, cost, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			newID(""), pv.ID, t.Type, t.Provider, t.Vehicle, t.Cost, now,
		); err != nil {
			return nil, fmt.Errorf("copy transport %s: %w", t.ID, err)
		}
	}
	for _, c := range costs {
		var dayID sql.NullString
		if c.ItineraryDayID != nil {
			if mapped, ok := dayIDs[*c.ItineraryDayID]; ok {
				dayID = sql.NullString{String: mapped, Valid: true}
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO costs (id, plan_version_id, itinerary_day_id, category, item, amount, currency, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			newID(""), pv.ID, dayID, c.Category, c.Item, c.Amount, c.Currency, now,
		); err != nil {
			return nil, fmt.Errorf("copy cost %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clone: %w", err)
	}
	return &pv, nil
}
