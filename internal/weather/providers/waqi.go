package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// WAQIProvider implements weather.AirQualitySource for the World Air Quality Index feed.
type WAQIProvider struct {
	token   string
	baseURL string
	api     *upstream
}

func NewWAQIProvider(client *http.Client, token string) *WAQIProvider {
	return &WAQIProvider{
		token:   token,
		baseURL: "https://api.waqi.info/feed",
		api:     newUpstream("waqi", client),
	}
}

// AirQuality returns the station reading nearest to coords. A station that
// reports "-" for its index yields an empty reading, not an error.
func (p *WAQIProvider) AirQuality(ctx context.Context, coords weather.Coordinates) (weather.AirQuality, error) {
	if p.token == "" {
		return weather.AirQuality{}, fmt.Errorf("waqi token is not configured")
	}

	endpoint := fmt.Sprintf("%s/geo:%s;%s/", p.baseURL, formatCoord(coords.Lat), formatCoord(coords.Lon))
	var payload struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := p.api.getJSON(ctx, endpoint, url.Values{"token": {p.token}}, &payload); err != nil {
		return weather.AirQuality{}, err
	}
	if payload.Status != "ok" {
		return weather.AirQuality{}, fmt.Errorf("waqi status %q: %s", payload.Status, strings.Trim(string(payload.Data), `"`))
	}

	var data struct {
		AQI  json.RawMessage `json:"aqi"`
		IAQI struct {
			PM25 *struct {
				V float64 `json:"v"`
			} `json:"pm25"`
		} `json:"iaqi"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return weather.AirQuality{}, fmt.Errorf("decode waqi data: %w", err)
	}

	var aq weather.AirQuality
	if v, ok := parseIndex(data.AQI); ok {
		aq.AQI = &v
	}
	if data.IAQI.PM25 != nil {
		pm := data.IAQI.PM25.V
		aq.PM25 = &pm
	}
	return aq, nil
}

// parseIndex accepts a JSON number or a numeric string.
func parseIndex(raw json.RawMessage) (int, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}
