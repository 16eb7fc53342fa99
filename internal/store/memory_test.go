package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

func entryAt(city string, ts time.Time, temp float64) weather.HistoryEntry {
	return weather.HistoryEntry{
		ID:        city + ts.String(),
		Timestamp: ts,
		Data:      weather.Snapshot{City: city, Timestamp: ts, Temperature: temp},
	}
}

func TestMemoryStoreSinceFiltersByCutoff(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	now := time.Now().UTC()

	for i, age := range []time.Duration{72 * time.Hour, 24 * time.Hour, time.Hour} {
		if err := s.Append(ctx, entryAt("Paris", now.Add(-age), float64(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Since(ctx, "paris", now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Data.Temperature != 1 || got[1].Data.Temperature != 2 {
		t.Fatalf("entries out of order: %+v", got)
	}

	got, err = s.Since(ctx, "Paris", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for a known city, got %d", len(got))
	}
}

func TestMemoryStoreUnknownCity(t *testing.T) {
	s := NewMemoryStore(0, 0)
	if _, err := s.Since(context.Background(), "Nowhere", time.Time{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.All(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	s := NewMemoryStore(2, 0)
	for i := 0; i < 5; i++ {
		_ = s.Append(ctx, entryAt("Oslo", now.Add(time.Duration(i)*time.Minute), float64(i)))
	}
	all, _ := s.All(ctx, "Oslo")
	if len(all) != 2 || all[0].Data.Temperature != 3 {
		t.Fatalf("count retention not applied: %+v", all)
	}

	s = NewMemoryStore(0, time.Hour)
	_ = s.Append(ctx, entryAt("Rome", now.Add(-3*time.Hour), 1))
	_ = s.Append(ctx, entryAt("Rome", now.Add(-2*time.Hour), 2))
	all, _ = s.All(ctx, "Rome")
	if len(all) != 1 || all[0].Data.Temperature != 2 {
		t.Fatalf("age retention should keep only the newest entry: %+v", all)
	}
}
