package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes a text rendition of the dashboard: status line, condition
// cards, the map marker and the historical trend table.
func Render(w io.Writer, s State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Weather & Air Quality Monitor")
	fmt.Fprintf(tw, "city: %q\thistory window: last %d day(s)\n", s.Query.City, s.Query.DaysToShow)
	if s.Status.Loading {
		fmt.Fprintln(tw, "Loading...")
	}
	if s.Status.Error != "" {
		fmt.Fprintf(tw, "error: %s\n", s.Status.Error)
	}

	if s.Weather == nil {
		return tw.Flush()
	}
	wd := s.Weather

	fmt.Fprintf(tw, "\nCurrent Conditions in %s\n", wd.City)
	fmt.Fprintf(tw, "Last updated: %s\n\n", FormatDate(wd.Timestamp))
	fmt.Fprintf(tw, "Temperature\t%s °C\n", formatNumber(wd.Temperature))
	fmt.Fprintf(tw, "Humidity\t%s%%\n", formatNumber(wd.Humidity))
	fmt.Fprintf(tw, "Weather\t%s\n", wd.Weather)
	fmt.Fprintf(tw, "Wind Speed\t%s m/s\n", formatNumber(wd.WindSpeed))
	fmt.Fprintf(tw, "Air Quality Index\t%s\t[%s]\n", aqiText(wd.AQI), ClassifyAirQuality(wd.AQI))
	fmt.Fprintf(tw, "PM2.5\t%s µg/m³\n", pm25Text(wd.PM25))

	if m, ok := MapMarker(s); ok {
		fmt.Fprintf(tw, "\nMap\tcenter [%s, %s] zoom %d\n", formatNumber(m.Position[0]), formatNumber(m.Position[1]), m.Zoom)
		fmt.Fprintf(tw, "Marker\t%s: %s\n", m.Title, strings.Join(m.Lines, ", "))
	}

	table := ToChartTable(s.History)
	if len(table) > 0 {
		fmt.Fprintln(tw, "\nHistorical Trends")
		for _, row := range table {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = cell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}
