package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
)

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

type countingWaiter struct {
	n   int
	err error
}

func (w *countingWaiter) Wait(context.Context) error {
	w.n++
	return w.err
}

type memCache struct {
	entries map[string]domain.LatLng
	writes  int
}

func (m *memCache) CachedGeocode(_ context.Context, q string) (domain.LatLng, bool, error) {
	ll, ok := m.entries[q]
	return ll, ok, nil
}

func (m *memCache) SaveGeocode(_ context.Context, q string, ll domain.LatLng) error {
	m.writes++
	m.entries[q] = ll
	return nil
}

func TestThrottledWaitsBeforeEveryCall(t *testing.T) {
	inner := &fakeGeocoder{results: map[string]domain.LatLng{"Orlando": {Lat: 28.5, Lng: -81.4}}}
	w := &countingWaiter{}
	g := NewThrottled(inner, w, nil)

	for i := 0; i < 3; i++ {
		if _, ok, err := g.Geocode(context.Background(), "Orlando"); err != nil || !ok {
			t.Fatalf("geocode: ok=%v err=%v", ok, err)
		}
	}
	if w.n != 3 {
		t.Fatalf("expected 3 waits, got %d", w.n)
	}
}

func TestThrottledPropagatesWaitError(t *testing.T) {
	inner := &fakeGeocoder{}
	g := NewThrottled(inner, &countingWaiter{err: context.Canceled}, nil)

	_, _, err := g.Geocode(context.Background(), "Orlando")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(inner.calls) != 0 {
		t.Fatal("inner geocoder should not run when the throttle fails")
	}
}

func TestCachedServesRepeatQueriesFromStore(t *testing.T) {
	inner := &fakeGeocoder{results: map[string]domain.LatLng{"Key West": {Lat: 24.55, Lng: -81.78}}}
	store := &memCache{entries: map[string]domain.LatLng{}}
	g := NewCached(store, inner, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ll, ok, err := g.Geocode(ctx, "Key West")
		if err != nil || !ok {
			t.Fatalf("geocode: ok=%v err=%v", ok, err)
		}
		if ll.Lat != 24.55 {
			t.Fatalf("unexpected coordinates %+v", ll)
		}
	}
	if len(inner.calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(inner.calls))
	}
	if _, ok := store.entries["key west"]; !ok {
		t.Fatalf("expected normalized cache key, have %v", store.entries)
	}
}

func TestCachedDoesNotStoreMisses(t *testing.T) {
	inner := &fakeGeocoder{results: map[string]domain.LatLng{}}
	store := &memCache{entries: map[string]domain.LatLng{}}
	g := NewCached(store, inner, nil)

	for i := 0; i < 2; i++ {
		if _, ok, err := g.Geocode(context.Background(), "Atlantis"); ok || err != nil {
			t.Fatalf("expected a clean miss, ok=%v err=%v", ok, err)
		}
	}
	if store.writes != 0 {
		t.Fatalf("misses must not be cached, got %d writes", store.writes)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("expected both lookups to reach upstream, got %d", len(inner.calls))
	}
}

func TestNominatimFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"25.0782266","lon":"-77.3383438","display_name":"Nassau"},{"lat":"1","lon":"2"}]`))
	}))
	defer srv.Close()

	ll, ok, err := NewNominatim(srv.URL).Geocode(context.Background(), "Nassau")
	if err != nil || !ok {
		t.Fatalf("geocode: ok=%v err=%v", ok, err)
	}
	if ll != (domain.LatLng{Lat: 25.0782266, Lng: -77.3383438}) {
		t.Fatalf("unexpected coordinates %+v", ll)
	}
}

func TestNominatimNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, ok, err := NewNominatim(srv.URL).Geocode(context.Background(), "Nowhere")
	if err != nil || ok {
		t.Fatalf("expected a clean miss, ok=%v err=%v", ok, err)
	}
}

func TestNominatimSendsEmail(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("email")
		w.Write([]byte(`[{"lat":"18.4929078","lon":"-77.6574376"}]`))
	}))
	defer srv.Close()

	if _, ok, err := NewNominatim(srv.URL, WithEmail("trips@example.com")).Geocode(context.Background(), "Falmouth"); !ok || err != nil {
		t.Fatalf("geocode: ok=%v err=%v", ok, err)
	}
	if got != "trips@example.com" {
		t.Fatalf("email = %q", got)
	}
}

func TestNominatimGivesUpAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, ok, err := NewNominatim(srv.URL, WithTimeout(50*time.Millisecond)).Geocode(context.Background(), "Anywhere")
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a deadline error, ok=%v err=%v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup blocked for %s", elapsed)
	}
}
