package weather

import (
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a geocoded city.
type Location struct {
	City        string      `json:"city"`
	Coordinates Coordinates `json:"coordinates"`
}

// Key returns a canonical string key for indexing a city in stores.
func Key(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Snapshot is the current-conditions record served for a city.
// Field names are the wire names the dashboard reads.
type Snapshot struct {
	City        string      `json:"city"`
	Timestamp   time.Time   `json:"timestamp"` // always UTC
	DataTime    *int64      `json:"data_time"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
	Weather     string      `json:"weather"`
	Condition   Condition   `json:"condition"`
	WindSpeed   float64     `json:"wind_speed"`
	AQI         *int        `json:"aqi"`
	PM25        *float64    `json:"pm25"`
	Coordinates Coordinates `json:"coordinates"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// HistoryEntry is one recorded snapshot.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      Snapshot  `json:"data"`
}

// History is the body of a successful history query.
type History struct {
	City string         `json:"city"`
	Data []HistoryEntry `json:"data"`
}

// AirQuality is a WAQI reading. Either field may be absent.
type AirQuality struct {
	AQI  *int
	PM25 *float64
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
