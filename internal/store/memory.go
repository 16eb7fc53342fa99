package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

var (
	// ErrNotFound is returned when no history was ever recorded for a city.
	ErrNotFound = errors.New("no weather data for city")
)

// MemoryStore is a concurrency-safe in-memory history store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: weather.Key(city), value: entries in append order
	data map[string][]weather.HistoryEntry

	// retention configuration
	maxHistory int           // max number of entries per city
	maxAge     time.Duration // optional max age for entries
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]weather.HistoryEntry),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append records an entry under its snapshot's city and enforces retention.
func (s *MemoryStore) Append(_ context.Context, entry weather.HistoryEntry) error {
	key := weather.Key(entry.Data.City)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.data[key], entry)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(entries) > s.maxHistory {
		entries = entries[len(entries)-s.maxHistory:]
	}

	// Enforce retention by age. The newest entry is always kept so a city
	// that was recorded once stays known.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for i < len(entries)-1 && entries[i].Timestamp.Before(cutoff) {
			i++
		}
		entries = entries[i:]
	}

	s.data[key] = entries
	return nil
}

// Since returns the city's entries with a timestamp at or after cutoff.
func (s *MemoryStore) Since(_ context.Context, city string, cutoff time.Time) ([]weather.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[weather.Key(city)]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]weather.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result, nil
}

// All returns every retained entry for the city.
func (s *MemoryStore) All(_ context.Context, city string) ([]weather.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[weather.Key(city)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]weather.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Close is a no-op; it lets MemoryStore stand in wherever a closable store is expected.
func (s *MemoryStore) Close() error { return nil }
