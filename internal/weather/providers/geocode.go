package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// GeocoderChain asks each geocoder in turn and returns the first hit.
// Upstream failures are logged and treated as misses.
type GeocoderChain struct {
	geocoders []weather.Geocoder
	log       *zap.Logger
}

func NewGeocoderChain(log *zap.Logger, geocoders ...weather.Geocoder) *GeocoderChain {
	if log == nil {
		log = zap.NewNop()
	}
	return &GeocoderChain{geocoders: geocoders, log: log}
}

func (c *GeocoderChain) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	var lastErr error
	for _, g := range c.geocoders {
		coords, err := g.Geocode(ctx, city)
		if err == nil {
			return coords, nil
		}
		if ctx.Err() != nil {
			return weather.Coordinates{}, ctx.Err()
		}
		if !errors.Is(err, weather.ErrCityNotFound) {
			c.log.Warn("geocoding failed", zap.String("city", city), zap.Error(err))
			lastErr = err
		}
	}
	if lastErr != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrCityNotFound, lastErr)
	}
	return weather.Coordinates{}, weather.ErrCityNotFound
}

type geocodeResult struct {
	coords weather.Coordinates
	found  bool
}

// CachedGeocoder memoizes hits and definitive misses of the wrapped geocoder.
// Lookups that failed upstream are not cached. When full, the oldest city is evicted.
type CachedGeocoder struct {
	next    weather.Geocoder
	maxSize int

	mu      sync.Mutex
	entries map[string]geocodeResult
	order   []string
}

func NewCachedGeocoder(next weather.Geocoder, maxSize int) *CachedGeocoder {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &CachedGeocoder{
		next:    next,
		maxSize: maxSize,
		entries: make(map[string]geocodeResult),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	key := strings.ToLower(city)

	c.mu.Lock()
	res, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		if !res.found {
			return weather.Coordinates{}, weather.ErrCityNotFound
		}
		return res.coords, nil
	}

	coords, err := c.next.Geocode(ctx, city)
	switch {
	case err == nil:
		c.put(key, geocodeResult{coords: coords, found: true})
	case err == weather.ErrCityNotFound:
		c.put(key, geocodeResult{})
	}
	return coords, err
}

func (c *CachedGeocoder) put(key string, res geocodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = res
}

// googleMu guards the package-level API key of the geocoder library.
var googleMu sync.Mutex

// GoogleGeocoder resolves cities through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("google geocoder api key is not configured")
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		googleMu.Lock()
		defer googleMu.Unlock()
		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{City: city})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("google geocoding: %w", r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
