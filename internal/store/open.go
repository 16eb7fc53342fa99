package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// Backend is a history store that owns resources.
type Backend interface {
	weather.Store
	Close() error
}

// Open returns the store selected by driver: "memory", "sqlite" or "postgres".
// maxHistory only bounds the memory store; SQL stores prune by age.
func Open(driver, dsn string, maxHistory int, maxAge time.Duration, log *zap.Logger) (Backend, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(maxHistory, maxAge), nil
	case string(DialectSQLite):
		if dsn == "" {
			dsn = "weather_history.db"
		}
		return OpenSQLite(dsn, maxAge, log)
	case string(DialectPostgres):
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires STORE_DSN")
		}
		return OpenPostgres(dsn, maxAge, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
