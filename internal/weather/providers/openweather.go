package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-aqi-monitor/internal/common"
	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap current weather.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	api     *upstream
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		api:     newUpstream("openweather", client),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coords weather.Coordinates) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", formatCoord(coords.Lat))
	values.Set("lon", formatCoord(coords.Lon))

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []openWeatherCondition `json:"weather"`
	}

	if err := p.api.getJSON(ctx, p.baseURL, values, &payload); err != nil {
		return weather.ProviderReading{}, err
	}
	if payload.Main == nil {
		return weather.ProviderReading{}, fmt.Errorf("openweather response has no main block")
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	var description string
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.Main.Temp,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
		Description:  description,
		Condition:    mapOpenWeatherCondition(payload.Weather),
	}, nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}

// OpenWeatherGeocoder resolves cities with the OpenWeather direct geocoding API.
type OpenWeatherGeocoder struct {
	apiKey  string
	baseURL string
	api     *upstream
}

func NewOpenWeatherGeocoder(client *http.Client, apiKey string) *OpenWeatherGeocoder {
	return &OpenWeatherGeocoder{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/geo/1.0/direct",
		api:     newUpstream("openweather-geo", client),
	}
}

type geoMatch struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Geocode tries an exact lookup first, then a wider lookup whose results
// are filtered by a case-insensitive name match.
func (g *OpenWeatherGeocoder) Geocode(ctx context.Context, city string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("openweather api key is not configured")
	}

	matches, err := g.direct(ctx, city, 1)
	if err != nil {
		return weather.Coordinates{}, err
	}
	if len(matches) > 0 {
		return weather.Coordinates{Lat: matches[0].Lat, Lon: matches[0].Lon}, nil
	}

	lower := strings.ToLower(city)
	matches, err = g.direct(ctx, lower, 5)
	if err != nil {
		return weather.Coordinates{}, err
	}
	for _, m := range matches {
		if common.ContainsFold(m.Name, lower) {
			return weather.Coordinates{Lat: m.Lat, Lon: m.Lon}, nil
		}
	}
	return weather.Coordinates{}, weather.ErrCityNotFound
}

func (g *OpenWeatherGeocoder) direct(ctx context.Context, q string, limit int) ([]geoMatch, error) {
	values := url.Values{}
	values.Set("q", q)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", g.apiKey)

	var matches []geoMatch
	if err := g.api.getJSON(ctx, g.baseURL, values, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}
