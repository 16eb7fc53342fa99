package dashboard

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// ClassifyAirQuality buckets an AQI value into the color of its card.
// Upper bounds are inclusive. Absent or zero values are gray.
func ClassifyAirQuality(aqi *int) string {
	if aqi == nil || *aqi == 0 {
		return "gray"
	}
	switch v := *aqi; {
	case v <= 50:
		return "green"
	case v <= 100:
		return "blue"
	case v <= 150:
		return "orange"
	case v <= 200:
		return "red"
	case v <= 300:
		return "purple"
	default:
		return "black"
	}
}

// ChartHeader is the first row of every non-empty chart table.
var ChartHeader = []any{"Date", "Temperature (°C)", "AQI", "PM2.5"}

// ToChartTable reshapes history into a line chart data table: a header row,
// then one [time.Time, temperature, aqi, pm25] row per entry in input order.
// Missing values stay nil.
func ToChartTable(history []HistoricalEntry) [][]any {
	if len(history) == 0 {
		return [][]any{}
	}

	table := make([][]any, 0, len(history)+1)
	table = append(table, slices.Clone(ChartHeader))
	for _, e := range history {
		table = append(table, []any{
			ParseTimestamp(e.Timestamp),
			derefFloat(e.Data.Temperature),
			derefInt(e.Data.AQI),
			derefFloat(e.Data.PM25),
		})
	}
	return table
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // ISO 8601 without offset, read as UTC
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 timestamp. Unparseable input gives the zero time.
func ParseTimestamp(iso string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDate renders an ISO 8601 timestamp in local time for display.
// Unparseable input is returned unchanged.
func FormatDate(iso string) string {
	t := ParseTimestamp(iso)
	if t.IsZero() {
		return iso
	}
	return t.Local().Format("1/2/2006, 3:04:05 PM")
}

// Marker is what the map widget pins at the map center.
type Marker struct {
	Position MapCenter
	Zoom     int
	Title    string
	Lines    []string
}

// MapMarker returns the marker for the current snapshot, or false before
// the first successful search.
func MapMarker(s State) (Marker, bool) {
	if s.Weather == nil {
		return Marker{}, false
	}
	w := s.Weather
	return Marker{
		Position: s.MapCenter,
		Zoom:     MapZoom,
		Title:    w.City,
		Lines: []string{
			"Temp: " + formatNumber(w.Temperature) + "°C",
			"AQI: " + aqiText(w.AQI),
		},
	}, true
}

func aqiText(aqi *int) string {
	if aqi == nil || *aqi == 0 {
		return "N/A"
	}
	return strconv.Itoa(*aqi)
}

func pm25Text(pm *float64) string {
	if pm == nil || *pm == 0 {
		return "N/A"
	}
	return formatNumber(*pm)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return formatNumber(x)
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Local().Format("2006-01-02 15:04")
	default:
		return fmt.Sprint(x)
	}
}
