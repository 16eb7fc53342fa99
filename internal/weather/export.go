package weather

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CSVHeader is the column layout of exported history files.
var CSVHeader = []string{
	"city", "timestamp", "data_time", "temperature", "humidity",
	"weather", "wind_speed", "aqi", "pm25", "lat", "lon",
}

// WriteCSV writes one row per entry, oldest first as stored.
func WriteCSV(w io.Writer, entries []HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		d := e.Data
		row := []string{
			d.City,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			optionalInt64(d.DataTime),
			formatFloat(d.Temperature),
			formatFloat(d.Humidity),
			d.Weather,
			formatFloat(d.WindSpeed),
			optionalInt(d.AQI),
			optionalFloat(d.PM25),
			formatFloat(d.Coordinates.Lat),
			formatFloat(d.Coordinates.Lon),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the on-disk name of a city's export for day t.
func ExportFilename(city string, t time.Time) string {
	return SecureFilename(city) + "_weather_data_" + t.Format("20060102") + ".csv"
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces name to an ASCII-only file name without path
// separators. Whitespace runs become underscores.
func SecureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, name)
	if err != nil {
		ascii = name
	}
	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	return strings.Trim(ascii, "._")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
