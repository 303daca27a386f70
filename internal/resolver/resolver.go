// Package resolver fills in missing itinerary-day coordinates for a plan
// version.
//
// A call works on a bounded batch of days. The first pass resolves every
// day with a concrete place name, either from the table of known stops or
// through the external geocoder. The second pass places sea days halfway
// between the nearest resolved neighbors. Nothing in a batch is fatal: each
// day that cannot be placed is reported with a reason and the batch goes on.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/pbaille/tripplan/internal/geo"
	"github.com/pbaille/tripplan/internal/geocode"
	"go.uber.org/zap"
)

// MaxPerCall bounds the number of days considered by one invocation.
// Callers re-invoke until nothing more gets updated.
const MaxPerCall = 10

// Skip reasons
const (
	ReasonMissingLocation = "Missing location"
	ReasonSeaDayDeferred  = "Sea day (interpolate later)"
	ReasonGeocodeFailed   = "Geocode failed"
	ReasonNoNeighbors     = "Cannot interpolate (missing neighbors)"
)

// MessageNothingMissing is reported when every day already has coordinates.
const MessageNothingMissing = "No missing coordinates"

// Update is a day whose coordinates were written
type Update struct {
	ID       string  `json:"id"`
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Skip is a day that could not be resolved in this call
type Skip struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// Report lists what one invocation did.
type Report struct {
	Updated []Update `json:"updated"`
	Skipped []Skip   `json:"skipped"`
	Message string   `json:"message,omitempty"`
}

// DayStore is the persistence the resolver needs
type DayStore interface {
	GetPlanVersion(ctx context.Context, id string) (*domain.PlanVersion, error)
	ListDays(ctx context.Context, planVersionID string) ([]domain.ItineraryDay, error)
	SetDayCoordinates(ctx context.Context, dayID string, ll domain.LatLng) error
}

// Resolver fills in missing day coordinates
type Resolver struct {
	store      DayStore
	geocoder   geocode.Geocoder
	logger     *zap.Logger
	maxPerCall int
}

// New creates a Resolver. geocoder is only consulted for locations that are
// not in the known-stop table; throttling belongs to the geocoder chain.
func New(store DayStore, geocoder geocode.Geocoder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:      store,
		geocoder:   geocoder,
		logger:     logger,
		maxPerCall: MaxPerCall,
	}
}

// ResolveMissing loads the days of a plan version and resolves the next
// batch of days lacking coordinates.
func (r *Resolver) ResolveMissing(ctx context.Context, planVersionID string) (Report, error) {
	if strings.TrimSpace(planVersionID) == "" {
		return Report{}, fmt.Errorf("plan version id is required")
	}
	if _, err := r.store.GetPlanVersion(ctx, planVersionID); err != nil {
		return Report{}, fmt.Errorf("get plan version: %w", err)
	}

	days, err := r.store.ListDays(ctx, planVersionID)
	if err != nil {
		return Report{}, fmt.Errorf("list days: %w", err)
	}
	SortByDayNumber(days)

	report := r.Resolve(ctx, days)
	r.logger.Info("coordinates resolved",
		zap.String("plan_version_id", planVersionID),
		zap.Int("updated", len(report.Updated)),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// Resolve runs both passes over days, which must already be ordered by
// DayNumber. Only the first MaxPerCall days without coordinates are
// touched.
func (r *Resolver) Resolve(ctx context.Context, days []domain.ItineraryDay) Report {
	batch := make(map[string]bool)
	for _, d := range days {
		if len(batch) == r.maxPerCall {
			break
		}
		if !d.HasCoordinates() {
			batch[d.ID] = true
		}
	}
	if len(batch) == 0 {
		return Report{Message: MessageNothingMissing}
	}

	var report Report

	// Pass 1: direct resolution
	for _, d := range days {
		if !batch[d.ID] {
			continue
		}
		loc := strings.TrimSpace(d.Location)
		if loc == "" {
			report.skip(d.ID, "", ReasonMissingLocation)
			continue
		}
		if geo.IsSeaDay(loc) {
			report.skip(d.ID, loc, ReasonSeaDayDeferred)
			continue
		}

		ll, ok := geo.KnownCoords(loc)
		if !ok {
			var err error
			ll, ok, err = r.geocoder.Geocode(ctx, loc)
			if err != nil {
				r.logger.Warn("geocode failed", zap.String("day_id", d.ID), zap.String("location", loc), zap.Error(err))
				ok = false
			}
		}
		if !ok {
			report.skip(d.ID, loc, ReasonGeocodeFailed)
			continue
		}

		if err := r.store.SetDayCoordinates(ctx, d.ID, ll); err != nil {
			report.skip(d.ID, loc, err.Error())
			continue
		}
		report.update(d.ID, loc, ll)
	}

	// Pass 2: sea days take the midpoint of their resolved neighbors.
	known := make(map[string]domain.LatLng, len(days))
	for _, d := range days {
		if d.HasCoordinates() {
			known[d.ID] = *d.Coordinates
		}
	}
	for _, u := range report.Updated {
		known[u.ID] = domain.LatLng{Lat: u.Lat, Lng: u.Lng}
	}

	for i, d := range days {
		if !batch[d.ID] {
			continue
		}
		loc := strings.TrimSpace(d.Location)
		if !geo.IsSeaDay(loc) {
			continue
		}

		prev, next, ok := NearestNeighbors(days, i, known)
		if !ok {
			report.skip(d.ID, loc, ReasonNoNeighbors)
			continue
		}
		mid := geo.Midpoint(prev, next)
		if err := r.store.SetDayCoordinates(ctx, d.ID, mid); err != nil {
			report.skip(d.ID, loc, err.Error())
			continue
		}
		report.update(d.ID, loc, mid)
		known[d.ID] = mid
	}

	return report
}

// NearestNeighbors scans days outward from index i and returns the closest
// known coordinate before it and the closest after it. ok is false unless
// both exist.
func NearestNeighbors(days []domain.ItineraryDay, i int, known map[string]domain.LatLng) (prev, next domain.LatLng, ok bool) {
	var havePrev, haveNext bool
	for j := i - 1; j >= 0; j-- {
		if ll, found := known[days[j].ID]; found {
			prev, havePrev = ll, true
			break
		}
	}
	for j := i + 1; j < len(days); j++ {
		if ll, found := known[days[j].ID]; found {
			next, haveNext = ll, true
			break
		}
	}
	return prev, next, havePrev && haveNext
}

// SortByDayNumber orders days chronologically in place.
func SortByDayNumber(days []domain.ItineraryDay) {
	sort.SliceStable(days, func(a, b int) bool {
		return days[a].DayNumber < days[b].DayNumber
	})
}

func (r *Report) skip(id, location, reason string) {
	r.Skipped = append(r.Skipped, Skip{ID: id, Location: location, Reason: reason})
}

func (r *Report) update(id, location string, ll domain.LatLng) {
	r.Updated = append(r.Updated, Update{ID: id, Location: location, Lat: ll.Lat, Lng: ll.Lng})
}
