package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/gominatim"
	"github.com/pbaille/tripplan/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultServer is the public Nominatim instance.
const DefaultServer = "https://nominatim.openstreetmap.org"

// DefaultDelay is the minimum spacing between two external lookups. The
// public Nominatim usage policy allows at most one request per second.
const DefaultDelay = 1100 * time.Millisecond

// Geocoder resolves free text to a single coordinate. ok is false when the
// provider has no match; err is set when the lookup itself failed.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (ll domain.LatLng, ok bool, err error)
}

// DefaultTimeout bounds a single Nominatim lookup.
const DefaultTimeout = 10 * time.Second

// gominatim reports an empty result set as an error with this text.
const nominatimNoResults = "Nothing found; sorry :/"

// gominatim keeps its server in package state. Lookups hold a read lock
// while searching; switching servers takes the write lock.
var (
	serverMu     sync.RWMutex
	activeServer string
)

// Nominatim geocodes through an OpenStreetMap Nominatim server
type Nominatim struct {
	server  string
	email   string
	timeout time.Duration
}

// NominatimOption configures a Nominatim geocoder
type NominatimOption func(*Nominatim)

// WithEmail identifies the application to the Nominatim server. The public
// instance asks bulk users to send one.
func WithEmail(email string) NominatimOption {
	return func(n *Nominatim) { n.email = strings.TrimSpace(email) }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) NominatimOption {
	return func(n *Nominatim) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// NewNominatim creates a Nominatim geocoder. An empty server selects
// DefaultServer.
func NewNominatim(server string, opts ...NominatimOption) *Nominatim {
	if strings.TrimSpace(server) == "" {
		server = DefaultServer
	}
	n := &Nominatim{server: strings.TrimRight(server, "/"), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type searchReply struct {
	results []gominatim.SearchResult
	err     error
}

// Geocode returns the first search result for query. An empty result set is
// a miss, not an error. A lookup that outlives the timeout is abandoned and
// reported as an error.
func (n *Nominatim) Geocode(ctx context.Context, query string) (domain.LatLng, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return domain.LatLng{}, false, err
	}

	// gominatim has no context support; the search finishes in the
	// background if we stop waiting.
	done := make(chan searchReply, 1)
	go func() {
		res, err := n.search(query)
		done <- searchReply{results: res, err: err}
	}()

	var reply searchReply
	select {
	case reply = <-done:
	case <-ctx.Done():
		return domain.LatLng{}, false, fmt.Errorf("nominatim search %q: %w", query, ctx.Err())
	}

	if reply.err != nil {
		if reply.err.Error() == nominatimNoResults {
			return domain.LatLng{}, false, nil
		}
		return domain.LatLng{}, false, fmt.Errorf("nominatim search: %w", reply.err)
	}
	if len(reply.results) == 0 {
		return domain.LatLng{}, false, nil
	}

	lat, err := strconv.ParseFloat(reply.results[0].Lat, 64)
	if err != nil {
		return domain.LatLng{}, false, nil
	}
	lng, err := strconv.ParseFloat(reply.results[0].Lon, 64)
	if err != nil {
		return domain.LatLng{}, false, nil
	}
	ll := domain.LatLng{Lat: lat, Lng: lng}
	return ll, ll.Valid(), nil
}

func (n *Nominatim) search(query string) ([]gominatim.SearchResult, error) {
	for {
		serverMu.RLock()
		if activeServer == n.server {
			break
		}
		serverMu.RUnlock()

		serverMu.Lock()
		gominatim.SetServer(n.server)
		activeServer = n.server
		serverMu.Unlock()
	}
	defer serverMu.RUnlock()

	q := gominatim.SearchQuery{
		Q:     query,
		Email: n.email,
		Limit: 1,
	}
	return q.Get()
}

// Waiter blocks until the next call is allowed. *rate.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter returns a limiter that spaces calls by at least delay. A
// non-positive delay disables throttling.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Throttled serializes lookups of the wrapped geocoder through a Waiter
type Throttled struct {
	next   Geocoder
	waiter Waiter
	logger *zap.Logger
}

// NewThrottled wraps next so that every call first waits on w.
func NewThrottled(next Geocoder, w Waiter, logger *zap.Logger) *Throttled {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttled{next: next, waiter: w, logger: logger}
}

// Geocode waits for the limiter, then delegates to the wrapped geocoder.
func (t *Throttled) Geocode(ctx context.Context, query string) (domain.LatLng, bool, error) {
	start := time.Now()
	if err := t.waiter.Wait(ctx); err != nil {
		return domain.LatLng{}, false, fmt.Errorf("geocode throttle: %w", err)
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		t.logger.Debug("geocode throttled", zap.String("query", query), zap.Duration("waited", waited))
	}
	return t.next.Geocode(ctx, query)
}
