package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func testUpstream(name string, client *http.Client) *upstream {
	u := newUpstream(name, client)
	u.backoff = fastBackoff
	return u
}

func TestUpstreamRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := testUpstream("test-retry", srv.Client()).get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestUpstreamDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testUpstream("test-4xx", srv.Client()).get(context.Background(), srv.URL)
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestUpstreamGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testUpstream("test-429", srv.Client()).get(context.Background(), srv.URL)
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected errRateLimited, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != int32(fastBackoff.MaxRetries+1) {
		t.Fatalf("expected %d calls, got %d", fastBackoff.MaxRetries+1, got)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := BackoffConfig{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for attempt, w := range want {
		if got := b.delay(attempt); got != w {
			t.Errorf("delay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestOpenWeatherGeocoderFuzzyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("limit") == "1" {
			w.Write([]byte(`[]`))
			return
		}
		if q := r.URL.Query().Get("q"); q != "springfield" {
			t.Errorf("fuzzy lookup should lower-case the query, got %q", q)
		}
		w.Write([]byte(`[{"name":"Shelbyville","lat":1,"lon":1},{"name":"Springfield","lat":39.8,"lon":-89.6}]`))
	}))
	defer srv.Close()

	g := NewOpenWeatherGeocoder(srv.Client(), "key")
	g.baseURL = srv.URL
	g.api.backoff = fastBackoff

	coords, err := g.Geocode(context.Background(), "Springfield")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coords.Lat != 39.8 || coords.Lon != -89.6 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}
}

func TestOpenWeatherProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("units") != "metric" {
			t.Errorf("expected metric units")
		}
		w.Write([]byte(`{"dt":1704067200,"main":{"temp":11.5,"humidity":80},"wind":{"speed":3.2},"weather":[{"main":"Rain","description":"light rain"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "key")
	p.baseURL = srv.URL
	p.api.backoff = fastBackoff

	r, err := p.Fetch(context.Background(), weather.Coordinates{Lat: 48.85, Lon: 2.35})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 11.5 || r.HumidityPct != 80 || r.WindSpeedMS != 3.2 {
		t.Fatalf("unexpected reading: %+v", r)
	}
	if r.Description != "light rain" || r.Condition != weather.ConditionRain {
		t.Fatalf("unexpected condition: %q %q", r.Description, r.Condition)
	}
	if r.Timestamp.Unix() != 1704067200 {
		t.Fatalf("unexpected timestamp: %v", r.Timestamp)
	}
}

func TestWeatherAPIProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "48.85,2.35" {
			t.Errorf("unexpected q %q", q)
		}
		w.Write([]byte(`{"current":{"last_updated_epoch":1704067200,"temp_c":12,"humidity":70,"wind_kph":36,"condition":{"text":"Patchy light drizzle"}}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "key")
	p.baseURL = srv.URL
	p.api.backoff = fastBackoff

	r, err := p.Fetch(context.Background(), weather.Coordinates{Lat: 48.85, Lon: 2.35})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.WindSpeedMS != 10 || r.TemperatureC != 12 {
		t.Fatalf("unexpected reading: %+v", r)
	}
	if r.Description != "patchy light drizzle" || r.Condition != weather.ConditionRain {
		t.Fatalf("unexpected condition: %q %q", r.Description, r.Condition)
	}
}

func TestOpenMeteoProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wind_speed_unit") != "ms" {
			t.Errorf("expected m/s wind speed")
		}
		w.Write([]byte(`{"current":{"time":1704067200,"temperature_2m":9.5,"relative_humidity_2m":60,"wind_speed_10m":4,"weather_code":3}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client())
	p.baseURL = srv.URL
	p.api.backoff = fastBackoff

	r, err := p.Fetch(context.Background(), weather.Coordinates{Lat: 48.85, Lon: 2.35})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 9.5 || r.HumidityPct != 60 || r.WindSpeedMS != 4 {
		t.Fatalf("unexpected reading: %+v", r)
	}
	if r.Condition != weather.ConditionCloudy {
		t.Fatalf("unexpected condition %q", r.Condition)
	}
}

func TestWAQIProvider(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantAQI *int
		wantPM  bool
		wantErr bool
	}{
		{name: "numeric index", body: `{"status":"ok","data":{"aqi":57,"iaqi":{"pm25":{"v":14.5}}}}`, wantAQI: intPtr(57), wantPM: true},
		{name: "dash index", body: `{"status":"ok","data":{"aqi":"-","iaqi":{}}}`},
		{name: "nan index", body: `{"status":"ok","data":{"aqi":"NaN","iaqi":{}}}`},
		{name: "infinite index", body: `{"status":"ok","data":{"aqi":"+Inf","iaqi":{}}}`},
		{name: "string index", body: `{"status":"ok","data":{"aqi":"88","iaqi":{}}}`, wantAQI: intPtr(88)},
		{name: "error status", body: `{"status":"error","data":"Invalid key"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, "/geo:") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewWAQIProvider(srv.Client(), "token")
			p.baseURL = srv.URL
			p.api.backoff = fastBackoff

			aq, err := p.AirQuality(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (aq.AQI == nil) != (tt.wantAQI == nil) || (aq.AQI != nil && *aq.AQI != *tt.wantAQI) {
				t.Fatalf("aqi: got %v want %v", aq.AQI, tt.wantAQI)
			}
			if (aq.PM25 != nil) != tt.wantPM {
				t.Fatalf("pm25 presence: got %v want %v", aq.PM25 != nil, tt.wantPM)
			}
		})
	}
}

type countingGeocoder struct {
	calls  int
	coords weather.Coordinates
	err    error
}

func (g *countingGeocoder) Geocode(context.Context, string) (weather.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func TestCachedGeocoder(t *testing.T) {
	inner := &countingGeocoder{coords: weather.Coordinates{Lat: 1, Lon: 2}}
	c := NewCachedGeocoder(inner, 1)

	for i := 0; i < 3; i++ {
		if _, err := c.Geocode(context.Background(), "Paris"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", inner.calls)
	}

	// Evicts Paris.
	c.Geocode(context.Background(), "Rome")
	c.Geocode(context.Background(), "paris")
	if inner.calls != 3 {
		t.Fatalf("expected eviction to force a new lookup, got %d calls", inner.calls)
	}

	inner.err = errors.New("boom")
	c.Geocode(context.Background(), "Lima")
	c.Geocode(context.Background(), "Lima")
	if inner.calls != 5 {
		t.Fatalf("upstream failures must not be cached, got %d calls", inner.calls)
	}
}

func TestGeocoderChain(t *testing.T) {
	miss := &countingGeocoder{err: weather.ErrCityNotFound}
	broken := &countingGeocoder{err: errors.New("timeout")}
	hit := &countingGeocoder{coords: weather.Coordinates{Lat: 5, Lon: 6}}

	coords, err := NewGeocoderChain(nil, miss, broken, hit).Geocode(context.Background(), "Quito")
	if err != nil || coords.Lat != 5 {
		t.Fatalf("expected third geocoder to answer, got %+v %v", coords, err)
	}

	_, err = NewGeocoderChain(nil, miss, broken).Geocode(context.Background(), "Quito")
	if !errors.Is(err, weather.ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
}

func TestGoogleGeocoder(t *testing.T) {
	g := NewGoogleGeocoder("key")
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		if a.City != "Quito" {
			t.Errorf("unexpected city %q", a.City)
		}
		return geocoder.Location{Latitude: -0.18, Longitude: -78.47}, nil
	}
	coords, err := g.Geocode(context.Background(), "Quito")
	if err != nil || coords.Lat != -0.18 || coords.Lon != -78.47 {
		t.Fatalf("unexpected result %+v %v", coords, err)
	}

	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}
	if _, err := g.Geocode(context.Background(), "Nowhere"); err == nil {
		t.Fatal("expected an error")
	}

	if _, err := NewGoogleGeocoder("").Geocode(context.Background(), "Quito"); err == nil {
		t.Fatal("expected an error without an api key")
	}
}

func intPtr(v int) *int { return &v }
