package weather

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCity is returned when the city is empty after trimming.
	ErrInvalidCity = errors.New("invalid city name")
	// ErrCityNotFound is returned when no geocoder could resolve the city.
	ErrCityNotFound = errors.New("city not found")
	// ErrNoReadings is returned when every weather provider failed.
	ErrNoReadings = errors.New("no successful provider readings")
	// ErrInvalidDays is returned for a non-positive history window.
	ErrInvalidDays = errors.New("days must be greater than zero")
)

// Options tunes a Service. The zero value is usable.
type Options struct {
	Logger    *zap.Logger
	ExportDir string
	Now       func() time.Time
}

// Service orchestrates geocoding, provider fan-out, air quality lookups and
// the history store.
type Service struct {
	log        *zap.Logger
	store      Store
	geocoder   Geocoder
	airQuality AirQualitySource
	providers  []Provider
	exportDir  string
	now        func() time.Time
}

// NewService creates a new Service. Providers are listed in priority order.
func NewService(store Store, geocoder Geocoder, airQuality AirQualitySource, providers []Provider, opts Options) *Service {
	s := &Service{
		log:        opts.Logger,
		store:      store,
		geocoder:   geocoder,
		airQuality: airQuality,
		providers:  providers,
		exportDir:  opts.ExportDir,
		now:        opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.exportDir == "" {
		s.exportDir = "data_exports"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Current resolves the city, fetches current conditions from all providers
// concurrently together with the air quality reading, records the resulting
// snapshot in history and returns it.
func (s *Service) Current(ctx context.Context, city string) (Snapshot, error) {
	name := NormalizeCity(city)
	if name == "" {
		return Snapshot{}, ErrInvalidCity
	}

	coords, err := s.geocoder.Geocode(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCityNotFound) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("geocode %s: %w", name, err)
	}
	loc := Location{City: name, Coordinates: coords}

	var (
		wg sync.WaitGroup
		aq AirQuality
	)
	if s.airQuality != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.airQuality.AirQuality(ctx, coords)
			if err != nil {
				// AQI is optional; the snapshot is still served without it.
				s.log.Warn("air quality lookup failed", zap.String("city", name), zap.Error(err))
				return
			}
			aq = r
		}()
	}

	readings := s.fetchReadings(ctx, loc)
	wg.Wait()

	if len(readings) == 0 {
		s.log.Error("no successful provider readings", zap.String("city", name), zap.Int("providers", len(s.providers)))
		return Snapshot{}, ErrNoReadings
	}

	now := s.now().UTC()
	snap := AggregateReadings(loc, readings)
	snap.Timestamp = now
	snap.AQI = aq.AQI
	snap.PM25 = aq.PM25

	entry := HistoryEntry{ID: uuid.NewString(), Timestamp: now, Data: snap}
	if err := s.store.Append(ctx, entry); err != nil {
		s.log.Error("failed to record history", zap.String("city", name), zap.Error(err))
	}
	return snap, nil
}

// fetchReadings queries every provider concurrently and returns the
// successful readings in provider order.
func (s *Service) fetchReadings(ctx context.Context, loc Location) []ProviderReading {
	results := make([]*ProviderReading, len(s.providers))

	var wg sync.WaitGroup
	for i, p := range s.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc.Coordinates)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.log.Warn("provider fetch failed",
					zap.String("provider", p.Name()),
					zap.String("city", loc.City),
					zap.Error(err))
				return
			}
			results[i] = &r
		}()
	}
	wg.Wait()

	readings := make([]ProviderReading, 0, len(results))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}
	return readings
}

// History returns the city's recorded snapshots from the last days days.
func (s *Service) History(ctx context.Context, city string, days int) (History, error) {
	name := NormalizeCity(city)
	if name == "" {
		return History{}, ErrInvalidCity
	}
	if days <= 0 {
		return History{}, ErrInvalidDays
	}

	cutoff := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	entries, err := s.store.Since(ctx, name, cutoff)
	if err != nil {
		return History{}, err
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return History{City: name, Data: entries}, nil
}

// ExportCSV writes the city's full history to a CSV file in the export
// directory and returns its path.
func (s *Service) ExportCSV(ctx context.Context, city string) (string, error) {
	name := NormalizeCity(city)
	if name == "" {
		return "", ErrInvalidCity
	}

	entries, err := s.store.All(ctx, name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(s.exportDir, ExportFilename(name, s.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, entries); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}

	s.log.Info("exported history", zap.String("city", name), zap.Int("rows", len(entries)), zap.String("path", path))
	return path, nil
}
