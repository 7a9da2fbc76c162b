package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbaizhakyp/floodwise/internal/cache"
	"github.com/mbaizhakyp/floodwise/internal/observability"
)

const geocodeTTL = 24 * time.Hour

// CachedGeocoder decorates a Geocoder with a cache. Geocoding results are
// stable, so hits are served for a day; negative results are never cached
// so transient misses can be retried. Cache errors fall through to the
// underlying geocoder.
type CachedGeocoder struct {
	inner   Geocoder
	cache   cache.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. metrics
// may be nil.
func NewCachedGeocoder(inner Geocoder, cacheClient cache.Client, logger *observability.Logger, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cacheClient,
		logger:  logger.WithComponent("geocode_cache"),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	key := "geocode:fwd:" + address
	return c.lookup(ctx, key, func() (GeocodeResult, error) {
		return c.inner.Geocode(ctx, address)
	})
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error) {
	key := fmt.Sprintf("geocode:rev:%.6f,%.6f", lat, lon)
	return c.lookup(ctx, key, func() (GeocodeResult, error) {
		return c.inner.ReverseGeocode(ctx, lat, lon)
	})
}

func (c *CachedGeocoder) lookup(ctx context.Context, key string, fetch func() (GeocodeResult, error)) (GeocodeResult, error) {
	if data, err := c.cache.Get(ctx, key); err == nil {
		var result GeocodeResult
		if err := json.Unmarshal(data, &result); err == nil {
			c.count("hit")
			return result, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Msg("geocode cache read failed")
	}
	c.count("miss")

	result, err := fetch()
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.cache.Set(ctx, key, data, geocodeTTL); err != nil {
			c.logger.Warn().Err(err).Msg("geocode cache write failed")
		}
	}
	return result, nil
}

func (c *CachedGeocoder) count(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
