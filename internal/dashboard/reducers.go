package dashboard

import (
	"fmt"
	"slices"
)

// The functions below are the only state transitions of the dashboard.
// They are pure: the controller applies them under its lock and performs
// the requests itself.

func cityEntered(s State, city string) State {
	s.Query.City = city
	return s
}

func daysSelected(s State, days int) (State, error) {
	if !slices.Contains(AllowedDays, days) {
		return s, fmt.Errorf("days must be one of %v, got %d", AllowedDays, days)
	}
	s.Query.DaysToShow = days
	return s, nil
}

func searchStarted(s State, city string) State {
	s.Query.City = city
	s.Status.Loading = true
	s.Status.Error = ""
	return s
}

// searchSucceeded replaces the snapshot wholesale and recenters the map.
func searchSucceeded(s State, snap WeatherSnapshot) State {
	s.Weather = &snap
	s.MapCenter = MapCenter{snap.Coordinates.Lat, snap.Coordinates.Lon}
	s.Status.Loading = false
	return s
}

// searchFailed keeps whatever snapshot and map center were shown before.
func searchFailed(s State, message string) State {
	s.Status.Loading = false
	s.Status.Error = message
	return s
}

func historyLoaded(s State, entries []HistoricalEntry) State {
	s.History = slices.Clone(entries)
	if s.History == nil {
		s.History = []HistoricalEntry{}
	}
	return s
}

func exportFailed(s State, message string) State {
	s.Status.Error = message
	return s
}
