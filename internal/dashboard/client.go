package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
)

const (
	weatherFallback = "Failed to fetch weather data"
	historyFallback = "Failed to fetch historical data"
	exportFallback  = "Export failed"
)

// Client talks to the weather-aqi-monitor HTTP API. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the API rooted at baseURL
// (e.g. http://localhost:5000).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// WeatherPayload is the undecoded-coordinates form of a /api/weather answer.
// Coordinates stay raw so the controller can tell missing or non-numeric
// values apart from transport problems.
type WeatherPayload struct {
	City        string          `json:"city"`
	Timestamp   string          `json:"timestamp"`
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	Weather     string          `json:"weather"`
	WindSpeed   float64         `json:"wind_speed"`
	AQI         *float64        `json:"aqi"`
	PM25        *float64        `json:"pm25"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Snapshot validates the payload. Coordinates must be an object whose lat
// and lon are both JSON numbers.
func (p WeatherPayload) Snapshot() (WeatherSnapshot, error) {
	invalid := &ValidationError{Message: "Invalid coordinates received"}
	raw := bytes.TrimSpace(p.Coordinates)
	if len(raw) == 0 || raw[0] != '{' {
		return WeatherSnapshot{}, invalid
	}
	var coords struct {
		Lat json.RawMessage `json:"lat"`
		Lon json.RawMessage `json:"lon"`
	}
	if err := json.Unmarshal(raw, &coords); err != nil {
		return WeatherSnapshot{}, invalid
	}
	lat, ok := jsonNumber(coords.Lat)
	if !ok {
		return WeatherSnapshot{}, invalid
	}
	lon, ok := jsonNumber(coords.Lon)
	if !ok {
		return WeatherSnapshot{}, invalid
	}

	snap := WeatherSnapshot{
		City:        p.City,
		Timestamp:   p.Timestamp,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Weather:     p.Weather,
		WindSpeed:   p.WindSpeed,
		PM25:        p.PM25,
		Coordinates: Coordinates{Lat: lat, Lon: lon},
	}
	if p.AQI != nil {
		v := int(math.Round(*p.AQI))
		snap.AQI = &v
	}
	return snap, nil
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || string(raw) == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Weather fetches current conditions for city.
func (c *Client) Weather(ctx context.Context, city string) (WeatherPayload, error) {
	var payload WeatherPayload
	err := c.getJSON(ctx, "weather", weatherFallback, url.Values{"city": {city}}, &payload)
	return payload, err
}

// History fetches the recorded entries of the last days days for city.
func (c *Client) History(ctx context.Context, city string, days int) ([]HistoricalEntry, error) {
	var body struct {
		Data []HistoricalEntry `json:"data"`
	}
	q := url.Values{"city": {city}, "days": {strconv.Itoa(days)}}
	if err := c.getJSON(ctx, "history", historyFallback, q, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		body.Data = []HistoricalEntry{}
	}
	return body.Data, nil
}

// Export requests the CSV export of city. The caller must close the body.
func (c *Client) Export(ctx context.Context, city string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, "export", exportFallback, url.Values{"city": {city}})
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && mediaType != "application/json" {
		return resp.Body, nil
	}

	// JSON on an export is always an error envelope, whatever the status line says.
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: "export", Status: resp.StatusCode, Message: exportFallback, Err: err}
	}
	status, msg := decodeError(raw, resp.StatusCode)
	if status >= 200 && status < 300 {
		status = resp.StatusCode
	}
	if msg == "" {
		msg = exportFallback
	}
	return nil, &FetchError{Op: "export", Status: status, Message: msg}
}

func (c *Client) get(ctx context.Context, endpoint, fallback string, q url.Values) (*http.Response, error) {
	u := fmt.Sprintf("%s/api/%s?%s", c.baseURL, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Op: endpoint, Message: fallback, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: endpoint, Message: fallback, Err: err}
	}
	return resp, nil
}

// getJSON performs a GET and decodes a successful answer into out.
//
// Answers are normally [body, status] envelopes and the envelope status
// wins over the status line. A plain JSON object is accepted too, with the
// status line deciding success.
func (c *Client) getJSON(ctx context.Context, endpoint, fallback string, q url.Values, out any) error {
	resp, err := c.get(ctx, endpoint, fallback, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Op: endpoint, Status: resp.StatusCode, Message: fallback, Err: err}
	}

	body, status, err := splitEnvelope(raw, resp.StatusCode)
	if err != nil {
		return &FetchError{Op: endpoint, Status: resp.StatusCode, Message: fallback, Err: err}
	}
	if status != http.StatusOK {
		_, msg := decodeError(body, status)
		if msg == "" {
			msg = fallback
		}
		return &FetchError{Op: endpoint, Status: status, Message: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Op: endpoint, Status: status, Message: fallback, Err: err}
	}
	return nil
}

// splitEnvelope returns the body and effective status of an answer.
func splitEnvelope(raw []byte, httpStatus int) (json.RawMessage, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, 0, errors.New("empty response body")
	}

	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, 0, errors.New("response is not valid JSON")
		}
		return trimmed, httpStatus, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return nil, 0, err
	}
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("envelope has %d elements, want 2", len(parts))
	}
	var status int
	if err := json.Unmarshal(parts[1], &status); err != nil {
		return nil, 0, fmt.Errorf("envelope status: %w", err)
	}
	return parts[0], status, nil
}

// decodeError extracts the status and error message of an error answer,
// whether enveloped or plain. Unknown shapes yield an empty message.
func decodeError(raw []byte, httpStatus int) (int, string) {
	body, status, err := splitEnvelope(raw, httpStatus)
	if err != nil {
		return httpStatus, ""
	}
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return status, ""
	}
	return status, e.Error
}
