package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pbaille/tripplan/internal/domain"
)

type memStore struct {
	plans   map[string]bool
	days    []domain.ItineraryDay
	writes  map[string]domain.LatLng
	failFor map[string]error
}

func newMemStore(days ...domain.ItineraryDay) *memStore {
	return &memStore{
		plans:   map[string]bool{"plan-1": true},
		days:    days,
		writes:  map[string]domain.LatLng{},
		failFor: map[string]error{},
	}
}

func (m *memStore) GetPlanVersion(_ context.Context, id string) (*domain.PlanVersion, error) {
	if !m.plans[id] {
		return nil, fmt.Errorf("plan version %s: %w", id, domain.ErrNotFound)
	}
	return &domain.PlanVersion{ID: id}, nil
}

func (m *memStore) ListDays(_ context.Context, planVersionID string) ([]domain.ItineraryDay, error) {
	out := make([]domain.ItineraryDay, len(m.days))
	copy(out, m.days)
	return out, nil
}

func (m *memStore) SetDayCoordinates(_ context.Context, dayID string, ll domain.LatLng) error {
	if err := m.failFor[dayID]; err != nil {
		return err
	}
	m.writes[dayID] = ll
	for i := range m.days {
		if m.days[i].ID == dayID {
			c := ll
			m.days[i].Coordinates = &c
		}
	}
	return nil
}

type fakeGeocoder struct {
	calls   []string
	results map[string]domain.LatLng
	err     error
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (domain.LatLng, bool, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return domain.LatLng{}, false, f.err
	}
	ll, ok := f.results[query]
	return ll, ok, nil
}

func day(n int, location string, coords *domain.LatLng) domain.ItineraryDay {
	return domain.ItineraryDay{
		ID:            fmt.Sprintf("day-%d", n),
		PlanVersionID: "plan-1",
		DayNumber:     n,
		Location:      location,
		Coordinates:   coords,
	}
}

func at(lat, lng float64) *domain.LatLng {
	return &domain.LatLng{Lat: lat, Lng: lng}
}

func findSkip(r Report, id string) (Skip, bool) {
	for _, s := range r.Skipped {
		if s.ID == id {
			return s, true
		}
	}
	return Skip{}, false
}

func findUpdate(r Report, id string) (Update, bool) {
	for _, u := range r.Updated {
		if u.ID == id {
			return u, true
		}
	}
	return Update{}, false
}

func TestSeaDayInterpolatesMidpoint(t *testing.T) {
	store := newMemStore(
		day(1, "Miami", at(10, 10)),
		day(2, "Sea Day", nil),
		day(3, "Nassau", at(20, 20)),
	)
	r := New(store, &fakeGeocoder{}, nil)

	report, err := r.ResolveMissing(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	u, ok := findUpdate(report, "day-2")
	if !ok {
		t.Fatalf("expected day-2 to be updated, report=%+v", report)
	}
	if u.Lat != 15 || u.Lng != 15 {
		t.Fatalf("expected (15,15), got (%v,%v)", u.Lat, u.Lng)
	}
	if store.writes["day-2"] != (domain.LatLng{Lat: 15, Lng: 15}) {
		t.Fatalf("midpoint not persisted: %+v", store.writes)
	}
}

func TestSeaDayUsesNeighborsResolvedInFirstPass(t *testing.T) {
	store := newMemStore(
		day(1, "Port Canaveral", nil),
		day(2, "Sea Day", nil),
		day(3, "CocoCay", nil),
	)
	g := &fakeGeocoder{results: map[string]domain.LatLng{"Port Canaveral": {Lat: 28.41, Lng: -80.6}}}
	report := New(store, g, nil).Resolve(context.Background(), store.days)

	u, ok := findUpdate(report, "day-2")
	if !ok {
		t.Fatalf("expected sea day to be interpolated, report=%+v", report)
	}
	port, coco := domain.LatLng{Lat: 28.41, Lng: -80.6}, domain.LatLng{Lat: 25.817425, Lng: -77.9385247}
	wantLat := (port.Lat + coco.Lat) / 2
	wantLng := (port.Lng + coco.Lng) / 2
	if u.Lat != wantLat || u.Lng != wantLng {
		t.Fatalf("got (%v,%v), want (%v,%v)", u.Lat, u.Lng, wantLat, wantLng)
	}
	if s, ok := findSkip(report, "day-2"); !ok || s.Reason != ReasonSeaDayDeferred {
		t.Fatalf("expected deferred marker for sea day, got %+v", report.Skipped)
	}
}

func TestSeaDayFirstCannotInterpolate(t *testing.T) {
	store := newMemStore(
		day(1, "Sea Day", nil),
		day(2, "Nassau, Bahamas", nil),
		day(3, "Miami", at(25.76, -80.19)),
	)
	report := New(store, &fakeGeocoder{}, nil).Resolve(context.Background(), store.days)

	if _, ok := findUpdate(report, "day-1"); ok {
		t.Fatal("first-day sea day must not be interpolated")
	}
	var reasons []string
	for _, s := range report.Skipped {
		if s.ID == "day-1" {
			reasons = append(reasons, s.Reason)
		}
	}
	if len(reasons) != 2 || reasons[1] != ReasonNoNeighbors {
		t.Fatalf("unexpected skip reasons for day-1: %v", reasons)
	}
}

func TestConsecutiveSeaDaysChain(t *testing.T) {
	store := newMemStore(
		day(1, "A", at(0, 0)),
		day(2, "Sea Day", nil),
		day(3, "Sea Day", nil),
		day(4, "B", at(40, 40)),
	)
	report := New(store, &fakeGeocoder{}, nil).Resolve(context.Background(), store.days)

	first, ok := findUpdate(report, "day-2")
	if !ok || first.Lat != 20 {
		t.Fatalf("day-2: %+v ok=%v", first, ok)
	}
	second, ok := findUpdate(report, "day-3")
	if !ok || second.Lat != 30 || second.Lng != 30 {
		t.Fatalf("day-3 should interpolate from day-2 and day-4: %+v ok=%v", second, ok)
	}
}

func TestKnownTableNeverCallsGeocoder(t *testing.T) {
	store := newMemStore(
		day(1, "Perfect Day at CocoCay", nil),
		day(2, "Falmouth, Jamaica", nil),
	)
	g := &fakeGeocoder{}
	report := New(store, g, nil).Resolve(context.Background(), store.days)

	if len(g.calls) != 0 {
		t.Fatalf("known stops must not reach the geocoder, calls=%v", g.calls)
	}
	if len(report.Updated) != 2 {
		t.Fatalf("expected 2 updates, got %+v", report)
	}
}

func TestGeocodeFailureIsSkipNotAbort(t *testing.T) {
	store := newMemStore(
		day(1, "Nowhere Special", nil),
		day(2, "   ", nil),
		day(3, "Orlando", nil),
	)
	g := &fakeGeocoder{results: map[string]domain.LatLng{"Orlando": {Lat: 28.54, Lng: -81.38}}}
	report := New(store, g, nil).Resolve(context.Background(), store.days)

	if s, _ := findSkip(report, "day-1"); s.Reason != ReasonGeocodeFailed {
		t.Errorf("day-1 reason = %q", s.Reason)
	}
	if s, _ := findSkip(report, "day-2"); s.Reason != ReasonMissingLocation {
		t.Errorf("day-2 reason = %q", s.Reason)
	}
	if _, ok := findUpdate(report, "day-3"); !ok {
		t.Errorf("day-3 should still resolve after earlier failures")
	}
}

func TestGeocoderErrorTreatedAsMiss(t *testing.T) {
	store := newMemStore(day(1, "Orlando", nil))
	g := &fakeGeocoder{err: errors.New("503 service unavailable")}
	report := New(store, g, nil).Resolve(context.Background(), store.days)

	if s, ok := findSkip(report, "day-1"); !ok || s.Reason != ReasonGeocodeFailed {
		t.Fatalf("expected geocode failure skip, got %+v", report)
	}
}

func TestPersistenceErrorRecordedAsSkip(t *testing.T) {
	store := newMemStore(
		day(1, "Orlando", nil),
		day(2, "Tampa", nil),
	)
	store.failFor["day-1"] = errors.New("database is locked")
	g := &fakeGeocoder{results: map[string]domain.LatLng{
		"Orlando": {Lat: 28.54, Lng: -81.38},
		"Tampa":   {Lat: 27.95, Lng: -82.46},
	}}
	report := New(store, g, nil).Resolve(context.Background(), store.days)

	if s, _ := findSkip(report, "day-1"); s.Reason != "database is locked" {
		t.Fatalf("expected store error as reason, got %+v", report.Skipped)
	}
	if _, ok := findUpdate(report, "day-2"); !ok {
		t.Fatal("later days must still be written")
	}
}

func TestBatchBound(t *testing.T) {
	var days []domain.ItineraryDay
	results := map[string]domain.LatLng{}
	for i := 1; i <= 15; i++ {
		loc := fmt.Sprintf("Town %d", i)
		days = append(days, day(i, loc, nil))
		results[loc] = domain.LatLng{Lat: float64(i), Lng: float64(i)}
	}
	store := newMemStore(days...)
	g := &fakeGeocoder{results: results}
	r := New(store, g, nil)

	report, err := r.ResolveMissing(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(report.Updated) != MaxPerCall {
		t.Fatalf("expected %d updates, got %d", MaxPerCall, len(report.Updated))
	}
	for i := 11; i <= 15; i++ {
		if _, ok := store.writes[fmt.Sprintf("day-%d", i)]; ok {
			t.Fatalf("day-%d is outside the batch and must be untouched", i)
		}
	}

	report, err = r.ResolveMissing(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if len(report.Updated) != 5 {
		t.Fatalf("second call should pick up the remaining 5, got %d", len(report.Updated))
	}

	report, err = r.ResolveMissing(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if len(report.Updated) != 0 || report.Message != MessageNothingMissing {
		t.Fatalf("expected nothing left, got %+v", report)
	}
}

func TestSeaDayOutsideBatchIsNotInterpolated(t *testing.T) {
	var days []domain.ItineraryDay
	days = append(days, day(1, "Start", at(0, 0)))
	for i := 2; i <= 11; i++ {
		days = append(days, day(i, "", nil))
	}
	days = append(days, day(12, "Sea Day", nil), day(13, "End", at(10, 10)))
	store := newMemStore(days...)

	report := New(store, &fakeGeocoder{}, nil).Resolve(context.Background(), store.days)
	if _, ok := findSkip(report, "day-12"); ok {
		t.Fatal("day-12 is outside the batch and must not be reported")
	}
	if _, ok := store.writes["day-12"]; ok {
		t.Fatal("day-12 is outside the batch and must not be written")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	build := func() *memStore {
		return newMemStore(
			day(1, "Orlando", nil),
			day(2, "Sea Day", nil),
			day(3, "Nassau, Bahamas", nil),
		)
	}
	results := map[string]domain.LatLng{"Orlando": {Lat: 28.54, Lng: -81.38}}

	a := build()
	ra := New(a, &fakeGeocoder{results: results}, nil).Resolve(context.Background(), a.days)
	b := build()
	rb := New(b, &fakeGeocoder{results: results}, nil).Resolve(context.Background(), b.days)

	if len(ra.Updated) != len(rb.Updated) {
		t.Fatalf("update counts differ: %d vs %d", len(ra.Updated), len(rb.Updated))
	}
	for i := range ra.Updated {
		if ra.Updated[i] != rb.Updated[i] {
			t.Fatalf("update %d differs: %+v vs %+v", i, ra.Updated[i], rb.Updated[i])
		}
	}
}

func TestResolveMissingUnknownPlan(t *testing.T) {
	r := New(newMemStore(), &fakeGeocoder{}, nil)
	_, err := r.ResolveMissing(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveMissingSortsByDayNumber(t *testing.T) {
	store := newMemStore(
		day(3, "B", at(20, 20)),
		day(1, "A", at(10, 10)),
		day(2, "Sea Day", nil),
	)
	report, err := New(store, &fakeGeocoder{}, nil).ResolveMissing(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u, ok := findUpdate(report, "day-2"); !ok || u.Lat != 15 {
		t.Fatalf("expected midpoint from sorted neighbors, got %+v", report)
	}
}

func TestNearestNeighbors(t *testing.T) {
	days := []domain.ItineraryDay{day(1, "", nil), day(2, "", nil), day(3, "", nil), day(4, "", nil)}
	known := map[string]domain.LatLng{"day-1": {Lat: 1, Lng: 1}, "day-4": {Lat: 4, Lng: 4}}

	prev, next, ok := NearestNeighbors(days, 2, known)
	if !ok || prev.Lat != 1 || next.Lat != 4 {
		t.Fatalf("got prev=%+v next=%+v ok=%v", prev, next, ok)
	}
	if _, _, ok := NearestNeighbors(days, 0, known); ok {
		t.Fatal("index 0 has no previous neighbor")
	}
	if _, _, ok := NearestNeighbors(days, 3, known); ok {
		t.Fatal("last index has no next neighbor")
	}
}
