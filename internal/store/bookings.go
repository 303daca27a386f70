package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
)

// AddAccommodation inserts an accommodation booking
func (s *Store) AddAccommodation(ctx context.Context, a domain.Accommodation) (*domain.Accommodation, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("accommodation name is required")
	}
	a.ID = newID(a.ID)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accommodations (id, plan_version_id, name, cost, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.PlanVersionID, a.Name, a.Cost, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert accommodation: %w", err)
	}
	return &a, nil
}

// ListAccommodations returns the accommodations of a plan version
func (s *Store) ListAccommodations(ctx context.Context, planVersionID string) ([]domain.Accommodation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, plan_version_id, name, cost FROM accommodations WHERE plan_version_id = ? ORDER BY created_at",
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	defer rows.Close()

	var out []domain.Accommodation
	for rows.Next() {
		var a domain.Accommodation
		if err := rows.Scan(&a.ID, &a.PlanVersionID, &a.Name, &a.Cost); err != nil {
			return nil, fmt.Errorf("scan accommodation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddTransport inserts a transport booking
func (s *Store) AddTransport(ctx context.Context, t domain.Transport) (*domain.Transport, error) {
	if strings.TrimSpace(t.Type) == "" {
		return nil, fmt.Errorf("transport type is required")
	}
	t.ID = newID(t.ID)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transport (id, plan_version_id, type, provider, vehicle, cost, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.PlanVersionID, t.Type, t.Provider, t.Vehicle, t.Cost, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert transport: %w", err)
	}
	return &t, nil
}

// ListTransport returns the transport bookings of a plan version
func (s *Store) ListTransport(ctx context.Context, planVersionID string) ([]domain.Transport, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, plan_version_id, type, provider, vehicle, cost FROM transport WHERE plan_version_id = ? ORDER BY created_at",
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transport: %w", err)
	}
	defer rows.Close()

	var out []domain.Transport
	for rows.Next() {
		var t domain.Transport
		if err := rows.Scan(&t.ID, &t.PlanVersionID, &t.Type, &t.Provider, &t.Vehicle, &t.Cost); err != nil {
			return nil, fmt.Errorf("scan transport: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddCost inserts a generic cost line item
func (s *Store) AddCost(ctx context.Context, c domain.CostRecord) (*domain.CostRecord, error) {
	if strings.TrimSpace(c.Item) == "" {
		return nil, fmt.Errorf("cost item is required")
	}
	if c.Amount.IsNegative() {
		return nil, fmt.Errorf("cost amount must not be negative")
	}
	c.ID = newID(c.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO costs (id, plan_version_id, itinerary_day_id, category, item, amount, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PlanVersionID, c.ItineraryDayID, c.Category, c.Item, c.Amount, c.Currency, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert cost: %w", err)
	}
	return &c, nil
}

// ListCosts returns the cost line items of a plan version
func (s *Store) ListCosts(ctx context.Context, planVersionID string) ([]domain.CostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_version_id, itinerary_day_id, category, item, amount, currency
		 FROM costs WHERE plan_version_id = ? ORDER BY created_at`,
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list costs: %w", err)
	}
	defer rows.Close()

	var out []domain.CostRecord
	for rows.Next() {
		var (
			c     domain.CostRecord
			dayID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.PlanVersionID, &dayID, &c.Category, &c.Item, &c.Amount, &c.Currency); err != nil {
			return nil, fmt.Errorf("scan cost: %w", err)
		}
		if dayID.Valid {
			c.ItineraryDayID = &dayID.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
