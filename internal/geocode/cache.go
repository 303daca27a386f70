package geocode

import (
	"context"
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
	"go.uber.org/zap"
)

// CacheStore persists geocode results keyed by normalized query
type CacheStore interface {
	CachedGeocode(ctx context.Context, query string) (domain.LatLng, bool, error)
	SaveGeocode(ctx context.Context, query string, ll domain.LatLng) error
}

// Cached answers repeated queries from a persistent store before falling
// through to the wrapped geocoder. Only successful lookups are stored, so
// misses and transient failures are retried on the next call.
type Cached struct {
	store  CacheStore
	next   Geocoder
	logger *zap.Logger
}

// NewCached wraps next with a persistent cache.
func NewCached(store CacheStore, next Geocoder, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{store: store, next: next, logger: logger}
}

// Geocode answers from the store when it can. Only hits are written back.
func (c *Cached) Geocode(ctx context.Context, query string) (domain.LatLng, bool, error) {
	key := cacheKey(query)
	if ll, ok, err := c.store.CachedGeocode(ctx, key); err != nil {
		c.logger.Warn("geocode cache read failed", zap.String("query", key), zap.Error(err))
	} else if ok {
		return ll, true, nil
	}

	ll, ok, err := c.next.Geocode(ctx, query)
	if err != nil || !ok {
		return ll, ok, err
	}
	if err := c.store.SaveGeocode(ctx, key, ll); err != nil {
		c.logger.Warn("geocode cache write failed", zap.String("query", key), zap.Error(err))
	}
	return ll, true, nil
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
