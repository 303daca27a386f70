package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pbaille/tripplan/internal/cache"
	"github.com/pbaille/tripplan/internal/domain"
)

const orlandoForecast = `{"daily":{
	"time":["2026-04-01","2026-04-02"],
	"temperature_2m_max":[29.5,null],
	"temperature_2m_min":[19.1,18.7],
	"precipitation_probability_max":[10,45],
	"weathercode":[1]}}`

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		q := r.URL.Query()
		if r.URL.Path != "/v1/forecast" || q.Get("latitude") != "28.5" || q.Get("longitude") != "-81.4" || q.Get("timezone") != "auto" {
			http.Error(w, `{"reason":"bad request"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(orlandoForecast))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDailyParsesAndCaches(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c, err := cache.NewTTL[Forecast](16)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	client := New(srv.URL, c, nil)
	orlando := domain.LatLng{Lat: 28.5, Lng: -81.4}

	f, err := client.Daily(context.Background(), orlando)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(f.Days) != 2 {
		t.Fatalf("expected 2 days, got %+v", f.Days)
	}
	first, second := f.Days[0], f.Days[1]
	if first.Date != "2026-04-01" || *first.TempMax != 29.5 || *first.PrecipChance != 10 || *first.WeatherCode != 1 {
		t.Fatalf("unexpected first day %+v", first)
	}
	if second.TempMax != nil || second.WeatherCode != nil || *second.TempMin != 18.7 {
		t.Fatalf("missing values should stay nil: %+v", second)
	}

	if _, err := client.Daily(context.Background(), orlando); err != nil {
		t.Fatalf("daily (cached): %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one upstream request, got %d", atomic.LoadInt32(&hits))
	}
}

func TestDailyErrors(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	client := New(srv.URL, nil, nil)

	if _, err := client.Daily(context.Background(), domain.LatLng{Lat: 91, Lng: 0}); err == nil {
		t.Fatal("expected invalid coordinates to be rejected")
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("invalid coordinates must not reach the api")
	}
	if _, err := client.Daily(context.Background(), domain.LatLng{Lat: 10, Lng: 10}); err == nil {
		t.Fatal("expected upstream error to surface")
	}
}
