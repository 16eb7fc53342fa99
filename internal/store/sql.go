package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// Dialect selects placeholder syntax and driver for SQLStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS weather_history (
	id TEXT PRIMARY KEY,
	city_key TEXT NOT NULL,
	ts_ns BIGINT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS weather_history_city_ts ON weather_history (city_key, ts_ns);`

// SQLStore persists history in SQLite (pure Go driver modernc.org/sqlite)
// or Postgres (lib/pq). Snapshots are stored as JSON.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	maxAge  time.Duration
	log     *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, maxAge time.Duration, log *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	// SQLite has a single writer; one connection serializes concurrent
	// appends instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, DialectSQLite, maxAge, log)
}

// sqliteDSN adds the pragmas every connection needs: WAL and a busy timeout.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// OpenPostgres connects with a lib/pq DSN and applies the schema.
func OpenPostgres(dsn string, maxAge time.Duration, log *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(db, DialectPostgres, maxAge, log)
}

func newSQLStore(db *sql.DB, dialect Dialect, maxAge time.Duration, log *zap.Logger) (*SQLStore, error) {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: dialect, maxAge: maxAge, log: log}, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append stores the entry and prunes entries older than the retention age.
func (s *SQLStore) Append(ctx context.Context, entry weather.HistoryEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := weather.Key(entry.Data.City)
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO weather_history(id, city_key, ts_ns, data) VALUES(?,?,?,?)`),
		entry.ID, key, entry.Timestamp.UTC().UnixNano(), string(data))
	if err != nil {
		return err
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge).UnixNano()
		// Keep the newest row so the city stays known.
		if _, err := s.db.ExecContext(ctx,
			s.rebind(`DELETE FROM weather_history WHERE city_key = ? AND ts_ns < ? AND id <> ?`),
			key, cutoff, entry.ID); err != nil {
			s.log.Warn("history prune failed", zap.String("city", key), zap.Error(err))
		}
	}
	return nil
}

// Since returns the city's entries at or after cutoff, oldest first.
func (s *SQLStore) Since(ctx context.Context, city string, cutoff time.Time) ([]weather.HistoryEntry, error) {
	return s.query(ctx, city, cutoff.UTC().UnixNano())
}

// All returns every stored entry for the city, oldest first.
func (s *SQLStore) All(ctx context.Context, city string) ([]weather.HistoryEntry, error) {
	return s.query(ctx, city, 0)
}

func (s *SQLStore) query(ctx context.Context, city string, fromNanos int64) ([]weather.HistoryEntry, error) {
	key := weather.Key(city)

	var known int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM weather_history WHERE city_key = ?`), key).Scan(&known)
	if err != nil {
		return nil, err
	}
	if known == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, ts_ns, data FROM weather_history WHERE city_key = ? AND ts_ns >= ? ORDER BY ts_ns`),
		key, fromNanos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.HistoryEntry, 0)
	for rows.Next() {
		var (
			e    weather.HistoryEntry
			ts   int64
			data string
		)
		if err := rows.Scan(&e.ID, &ts, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			s.log.Warn("skipping undecodable history row", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
