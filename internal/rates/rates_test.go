package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pbaille/tripplan/internal/cache"
	"github.com/shopspring/decimal"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/latest" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("from") != "GBP" || r.URL.Query().Get("to") != "USD" {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"amount":1.0,"base":"GBP","date":"2026-03-02","rates":{"USD":1.2712}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestUsesDefaultsAndCache(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c, err := cache.NewTTL[Rate](16)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	client := New(srv.URL, c, nil)

	r, err := client.Latest(context.Background(), "", "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r.From != "GBP" || r.To != "USD" || r.Date != "2026-03-02" || !r.Rate.Equal(decimal.RequireFromString("1.2712")) {
		t.Fatalf("unexpected rate: %+v", r)
	}

	if _, err := client.Latest(context.Background(), "gbp", "usd"); err != nil {
		t.Fatalf("latest (cached): %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one upstream request, got %d", atomic.LoadInt32(&hits))
	}

	if got := r.Convert(decimal.NewFromInt(100)); !got.Equal(decimal.RequireFromString("127.12")) {
		t.Fatalf("convert = %s", got)
	}
}

func TestLatestErrors(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	client := New(srv.URL, nil, nil)

	if _, err := client.Latest(context.Background(), "EUR", "JPY"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if _, err := client.Latest(context.Background(), "POUNDS", "USD"); err == nil {
		t.Fatal("expected an error for an invalid code")
	}
	before := atomic.LoadInt32(&hits)
	r, err := client.Latest(context.Background(), "USD", "USD")
	if err != nil || !r.Rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("identity pair: %+v %v", r, err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Fatal("identity pair should not reach the api")
	}
}
