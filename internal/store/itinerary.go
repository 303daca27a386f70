package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
)

// AddDay inserts an itinerary day. Coordinates are optional.
func (s *Store) AddDay(ctx context.Context, d domain.ItineraryDay) (*domain.ItineraryDay, error) {
	if d.DayNumber < 1 {
		return nil, fmt.Errorf("day number must be positive, got %d", d.DayNumber)
	}
	d.ID = newID(d.ID)

	coords, err := encodeCoords(d.Coordinates)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO itinerary_days (id, plan_version_id, day_number, day_date, location, location_coordinates)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.PlanVersionID, d.DayNumber, formatDate(d.Date), d.Location, coords,
	)
	if err != nil {
		return nil, conflict(fmt.Sprintf("insert day %d", d.DayNumber), err)
	}
	return &d, nil
}

// GetDay retrieves a single itinerary day
func (s *Store) GetDay(ctx context.Context, id string) (*domain.ItineraryDay, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan_version_id, day_number, day_date, location, location_coordinates
		 FROM itinerary_days WHERE id = ?`, id)
	d, err := scanDay(row)
	if err != nil {
		return nil, notFound("get day", id, err)
	}
	return d, nil
}

// ListDays returns the days of a plan version ordered by day number
func (s *Store) ListDays(ctx context.Context, planVersionID string) ([]domain.ItineraryDay, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_version_id, day_number, day_date, location, location_coordinates
		 FROM itinerary_days WHERE plan_version_id = ? ORDER BY day_number ASC`,
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []domain.ItineraryDay
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}

// SetDayCoordinates overwrites the coordinates of one day
func (s *Store) SetDayCoordinates(ctx context.Context, dayID string, ll domain.LatLng) error {
	coords, err := encodeCoords(&ll)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE itinerary_days SET location_coordinates = ? WHERE id = ?",
		coords, dayID,
	)
	if err != nil {
		return fmt.Errorf("update day coordinates: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update day coordinates %s: %w", dayID, domain.ErrNotFound)
	}
	return nil
}

// UpdateDayLocation changes the free-text location of a day and clears its
// coordinates so the resolver picks it up again.
func (s *Store) UpdateDayLocation(ctx context.Context, dayID, location string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE itinerary_days SET location = ?, location_coordinates = NULL WHERE id = ?",
		location, dayID,
	)
	if err != nil {
		return fmt.Errorf("update day location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update day location %s: %w", dayID, domain.ErrNotFound)
	}
	return nil
}

// CachedGeocode returns a previously stored geocode result
func (s *Store) CachedGeocode(ctx context.Context, query string) (domain.LatLng, bool, error) {
	var ll domain.LatLng
	err := s.db.QueryRowContext(ctx,
		"SELECT lat, lng FROM geocode_cache WHERE query = ?", query,
	).Scan(&ll.Lat, &ll.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LatLng{}, false, nil
	}
	if err != nil {
		return domain.LatLng{}, false, fmt.Errorf("read geocode cache: %w", err)
	}
	return ll, true, nil
}

// SaveGeocode stores a successful geocode result
func (s *Store) SaveGeocode(ctx context.Context, query string, ll domain.LatLng) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO geocode_cache (query, lat, lng, fetched_at) VALUES (?, ?, ?, ?)",
		query, ll.Lat, ll.Lng, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (*domain.ItineraryDay, error) {
	var (
		d            domain.ItineraryDay
		date, coords sql.NullString
	)
	if err := row.Scan(&d.ID, &d.PlanVersionID, &d.DayNumber, &date, &d.Location, &coords); err != nil {
		return nil, err
	}
	d.Date = parseDate(date)
	if coords.Valid {
		// Malformed values are treated as missing so the resolver retries them.
		if ll, ok := domain.ParseLatLng(coords.String); ok {
			d.Coordinates = &ll
		}
	}
	return &d, nil
}

func encodeCoords(ll *domain.LatLng) (any, error) {
	if ll == nil {
		return nil, nil
	}
	if !ll.Valid() {
		return nil, fmt.Errorf("invalid coordinates %v,%v", ll.Lat, ll.Lng)
	}
	b, err := json.Marshal(ll)
	if err != nil {
		return nil, fmt.Errorf("encode coordinates: %w", err)
	}
	return string(b), nil
}
