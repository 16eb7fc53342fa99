package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// OpenMeteoProvider implements weather.Provider for Open-Meteo. It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	api     *upstream
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		api:     newUpstream("openmeteo", client),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, coords weather.Coordinates) (weather.ProviderReading, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(coords.Lat))
	values.Set("longitude", formatCoord(coords.Lon))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
	values.Set("wind_speed_unit", "ms")
	values.Set("timeformat", "unixtime")

	var payload struct {
		Current struct {
			Time        int64   `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := p.api.getJSON(ctx, p.baseURL, values, &payload); err != nil {
		return weather.ProviderReading{}, err
	}

	ts := time.Now().UTC()
	if payload.Current.Time > 0 {
		ts = time.Unix(payload.Current.Time, 0).UTC()
	}

	code := payload.Current.WeatherCode
	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.Current.Temperature,
		HumidityPct:  payload.Current.Humidity,
		WindSpeedMS:  payload.Current.WindSpeed,
		Description:  describeOpenMeteoCode(code),
		Condition:    mapOpenMeteoCondition(code),
	}, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on WMO weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func describeOpenMeteoCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "mainly clear"
	case code == 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	default:
		return ""
	}
}
