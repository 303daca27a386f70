package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pbaille/tripplan/internal/domain"
)

//go:embed schema.sql
var schema string

const dateLayout = "2006-01-02"

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTrip inserts a trip and returns it with its generated id
func (s *Store) CreateTrip(ctx context.Context, t domain.Trip) (*domain.Trip, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("trip name is required")
	}
	t.ID = newID(t.ID)
	t.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trips (id, name, destination, start_date, end_date, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, t.Name, t.Destination, formatDate(t.StartDate), formatDate(t.EndDate), t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	return &t, nil
}

// GetTrip retrieves a trip by ID
func (s *Store) GetTrip(ctx context.Context, id string) (*domain.Trip, error) {
	var (
		t          domain.Trip
		start, end sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, destination, start_date, end_date, created_at FROM trips WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Name, &t.Destination, &start, &end, &t.CreatedAt)
	if err != nil {
		return nil, notFound("get trip", id, err)
	}
	t.StartDate = parseDate(start)
	t.EndDate = parseDate(end)
	return &t, nil
}

// ListTrips returns all trips, newest first
func (s *Store) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, destination, start_date, end_date, created_at FROM trips ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var (
			t          domain.Trip
			start, end sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Destination, &start, &end, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		t.StartDate = parseDate(start)
		t.EndDate = parseDate(end)
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// CreatePlanVersion adds a plan version to a trip
func (s *Store) CreatePlanVersion(ctx context.Context, pv domain.PlanVersion) (*domain.PlanVersion, error) {
	if strings.TrimSpace(pv.Name) == "" {
		return nil, fmt.Errorf("plan version name is required")
	}
	if pv.Currency == "" {
		pv.Currency = "GBP"
	}
	pv.ID = newID(pv.ID)
	pv.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO plan_versions (id, trip_id, name, currency, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		pv.ID, pv.TripID, pv.Name, pv.Currency, pv.IsActive, pv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plan version: %w", err)
	}
	return &pv, nil
}

// GetPlanVersion retrieves a plan version by ID
func (s *Store) GetPlanVersion(ctx context.Context, id string) (*domain.PlanVersion, error) {
	var pv domain.PlanVersion
	err := s.db.QueryRowContext(ctx,
		"SELECT id, trip_id, name, currency, is_active, created_at FROM plan_versions WHERE id = ?",
		id,
	).Scan(&pv.ID, &pv.TripID, &pv.Name, &pv.Currency, &pv.IsActive, &pv.CreatedAt)
	if err != nil {
		return nil, notFound("get plan version", id, err)
	}
	return &pv, nil
}

// ListPlanVersions returns the plan versions of a trip in creation order
func (s *Store) ListPlanVersions(ctx context.Context, tripID string) ([]domain.PlanVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, trip_id, name, currency, is_active, created_at FROM plan_versions WHERE trip_id = ? ORDER BY created_at",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plan versions: %w", err)
	}
	defer rows.Close()

	var out []domain.PlanVersion
	for rows.Next() {
		var pv domain.PlanVersion
		if err := rows.Scan(&pv.ID, &pv.TripID, &pv.Name, &pv.Currency, &pv.IsActive, &pv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan version: %w", err)
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound and wraps anything else.
func notFound(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// conflict maps unique constraint violations to domain.ErrConflict.
func conflict(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
