package weather

import "time"

// AggregateReadings combines provider readings into a single Snapshot.
// Numeric fields are averaged. Readings are expected in provider priority
// order: the description comes from the first reading that has one, and the
// condition is the majority vote with ties going to the earlier reading.
func AggregateReadings(loc Location, readings []ProviderReading) Snapshot {
	if len(readings) == 0 {
		return Snapshot{
			City:        loc.City,
			Timestamp:   time.Now().UTC(),
			Condition:   ConditionUnknown,
			Coordinates: loc.Coordinates,
		}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		description string
	)

	conditionCounts := make(map[Condition]int)
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedMS

		if description == "" {
			description = r.Description
		}
		conditionCounts[r.Condition]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	bestCond := ConditionUnknown
	bestCount := 0
	for _, r := range readings {
		if c := conditionCounts[r.Condition]; c > bestCount {
			bestCount = c
			bestCond = r.Condition
		}
	}

	snap := Snapshot{
		City:        loc.City,
		Temperature: sumTemp / n,
		Humidity:    sumHumidity / n,
		WindSpeed:   sumWind / n,
		Weather:     description,
		Condition:   bestCond,
		Coordinates: loc.Coordinates,
		Providers:   providers,
	}
	if !newestTS.IsZero() {
		dt := newestTS.Unix()
		snap.DataTime = &dt
	}
	return snap
}
