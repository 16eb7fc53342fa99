package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClientWeatherEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/weather" || r.URL.Query().Get("city") != "Paris" {
			t.Errorf("unexpected request %s", r.URL)
		}
		writeJSON(w, http.StatusOK, `[{"city":"Paris","timestamp":"2024-01-01T00:00:00Z","temperature":10,"humidity":80,"weather":"rain","wind_speed":3,"aqi":41.6,"pm25":5,"coordinates":{"lat":48.85,"lon":2.35}},200]`)
	})

	payload, err := c.Weather(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("weather: %v", err)
	}
	snap, err := payload.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.City != "Paris" || snap.Coordinates != (Coordinates{48.85, 2.35}) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.AQI == nil || *snap.AQI != 42 {
		t.Fatalf("expected AQI rounded to 42, got %v", snap.AQI)
	}
}

func TestClientWeatherErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"envelope error", http.StatusNotFound, `[{"error":"City not found"},404]`, 404, "City not found"},
		{"envelope status wins", http.StatusOK, `[{"error":"Invalid city name"},400]`, 400, "Invalid city name"},
		{"plain error object", http.StatusBadRequest, `{"error":"City parameter is required"}`, 400, "City parameter is required"},
		{"error without message", http.StatusInternalServerError, `[{},500]`, 500, weatherFallback},
		{"malformed json", http.StatusOK, `[{"city":`, 0, weatherFallback},
		{"html error page", http.StatusBadGateway, `<html>bad gateway</html>`, 0, weatherFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.Weather(context.Background(), "Paris")
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fe.Message != tt.wantMsg {
				t.Fatalf("message: got %q want %q", fe.Message, tt.wantMsg)
			}
			if tt.wantStatus != 0 && fe.Status != tt.wantStatus {
				t.Fatalf("status: got %d want %d", fe.Status, tt.wantStatus)
			}
		})
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(srv.URL, srv.Client())
	srv.Close()

	_, err := c.History(context.Background(), "Paris", 7)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Message != historyFallback || fe.Err == nil {
		t.Fatalf("expected history fallback with a cause, got %#v", err)
	}
}

func TestClientHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "3" {
			t.Errorf("expected days=3, got %q", r.URL.Query().Get("days"))
		}
		writeJSON(w, http.StatusOK, `[{"city":"Paris","data":[{"timestamp":"2024-01-01T00:00:00Z","data":{"temperature":10,"aqi":40,"pm25":null}}]},200]`)
	})

	entries, err := c.History(context.Background(), "Paris", 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	d := entries[0].Data
	if d.Temperature == nil || *d.Temperature != 10 || d.AQI == nil || *d.AQI != 40 || d.PM25 != nil {
		t.Fatalf("unexpected data %+v", d)
	}
}

func TestClientHistoryWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"city":"Paris"},200]`)
	})
	entries, err := c.History(context.Background(), "Paris", 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", entries)
	}
}

func TestClientExport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "city,timestamp\nParis,2024-01-01T00:00:00Z\n")
	})

	body, err := c.Export(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	if string(raw) != "city,timestamp\nParis,2024-01-01T00:00:00Z\n" {
		t.Fatalf("unexpected body %q", raw)
	}
}

func TestClientExportErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"not found envelope", http.StatusNotFound, `[{"error":"No data available"},404]`, "No data available"},
		{"json on 200", http.StatusOK, `[{"error":"Export failed: disk full"},500]`, "Export failed: disk full"},
		{"unreadable error", http.StatusInternalServerError, `oops`, exportFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.Export(context.Background(), "Paris")
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fe.Message != tt.wantMsg {
				t.Fatalf("message: got %q want %q", fe.Message, tt.wantMsg)
			}
		})
	}
}

func TestWeatherPayloadCoordinates(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"numeric", `{"coordinates":{"lat":1.5,"lon":-2}}`, true},
		{"missing coordinates", `{}`, false},
		{"missing lat", `{"coordinates":{"lon":2.35}}`, false},
		{"null lon", `{"coordinates":{"lat":48.85,"lon":null}}`, false},
		{"string lat", `{"coordinates":{"lat":"48.85","lon":2.35}}`, false},
		{"object lon", `{"coordinates":{"lat":48.85,"lon":{}}}`, false},
		{"null coordinates", `{"coordinates":null}`, false},
		{"string coordinates", `{"city":"X","coordinates":"48.85,2.35"}`, false},
		{"array coordinates", `{"city":"X","coordinates":[48.85,2.35]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `[`+tt.body+`,200]`)
			})
			payload, err := c.Weather(context.Background(), "x")
			if err != nil {
				t.Fatalf("weather: %v", err)
			}
			_, err = payload.Snapshot()
			var ve *ValidationError
			if tt.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.ok && (!errors.As(err, &ve) || ve.Message != "Invalid coordinates received") {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
