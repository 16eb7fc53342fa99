package dashboard

// AllowedDays are the history windows the dashboard offers.
var AllowedDays = []int{1, 3, 7, 30}

// DefaultDaysToShow is the history window before the user picks one.
const DefaultDaysToShow = 7

// DefaultMapCenter is shown until the first successful search (London).
var DefaultMapCenter = MapCenter{51.505, -0.09}

// MapZoom is the zoom level the map widget is rendered at.
const MapZoom = 12

// QueryState is what the user has typed and selected. It persists across searches.
type QueryState struct {
	City       string
	DaysToShow int
}

// UIStatus is the transient request status shown next to the search box.
// An empty Error means no error.
type UIStatus struct {
	Loading bool
	Error   string
}

// MapCenter is a [lat, lon] pair.
type MapCenter [2]float64

// Coordinates of a validated snapshot.
type Coordinates struct {
	Lat float64
	Lon float64
}

// WeatherSnapshot is a validated current-conditions record.
type WeatherSnapshot struct {
	City        string
	Timestamp   string
	Temperature float64
	Humidity    float64
	Weather     string
	WindSpeed   float64
	AQI         *int
	PM25        *float64
	Coordinates Coordinates
}

// HistoricalData is the subset of a recorded snapshot the chart plots.
type HistoricalData struct {
	Temperature *float64 `json:"temperature"`
	AQI         *int     `json:"aqi"`
	PM25        *float64 `json:"pm25"`
}

// HistoricalEntry is one point of the history series.
type HistoricalEntry struct {
	Timestamp string         `json:"timestamp"`
	Data      HistoricalData `json:"data"`
}

// State is the whole dashboard UI state.
type State struct {
	Query     QueryState
	Weather   *WeatherSnapshot // nil until the first successful search
	History   []HistoricalEntry
	MapCenter MapCenter
	Status    UIStatus
}

// NewState returns the state of a freshly opened dashboard.
func NewState() State {
	return State{
		Query:     QueryState{DaysToShow: DefaultDaysToShow},
		MapCenter: DefaultMapCenter,
	}
}

// clone returns a copy that shares nothing mutable with s.
func (s State) clone() State {
	if s.Weather != nil {
		w := *s.Weather
		s.Weather = &w
	}
	if s.History != nil {
		h := make([]HistoricalEntry, len(s.History))
		copy(h, s.History)
		s.History = h
	}
	return s
}
