package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a Snapshot.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	HumidityPct  float64
	WindSpeedMS  float64
	Description  string
	Condition    Condition
}

// Provider abstracts a current-weather source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (ProviderReading, error)
}

// Geocoder resolves a city name to coordinates. Implementations return
// ErrCityNotFound when the lookup succeeded but matched nothing.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Coordinates, error)
}

// AirQualitySource returns the air quality reading closest to coords.
type AirQualitySource interface {
	AirQuality(ctx context.Context, coords Coordinates) (AirQuality, error)
}

// Store is the contract history stores (memory, sqlite, postgres) must satisfy.
// Since and All return store.ErrNotFound for a city that was never recorded.
type Store interface {
	Append(ctx context.Context, entry HistoryEntry) error
	Since(ctx context.Context, city string, cutoff time.Time) ([]HistoryEntry, error)
	All(ctx context.Context, city string) ([]HistoryEntry, error)
}
