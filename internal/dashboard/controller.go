package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// API is the backend the controller drives. *Client implements it.
type API interface {
	Weather(ctx context.Context, city string) (WeatherPayload, error)
	History(ctx context.Context, city string, days int) ([]HistoricalEntry, error)
	Export(ctx context.Context, city string) (io.ReadCloser, error)
}

// Export is a downloadable CSV export. The caller must close Body.
type Export struct {
	Filename string
	Body     io.ReadCloser
}

// ExportFilename is the name an export of city is saved under.
func ExportFilename(city string) string {
	return city + "_weather_data.csv"
}

// Controller owns the dashboard state and performs its requests.
//
// Searches cancel and replace each other: starting a search cancels the one
// in flight, and any result that arrives for an older search (including the
// history fetch it triggered) is dropped.
type Controller struct {
	api API
	log *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
}

// NewController returns a controller in the initial state.
func NewController(api API, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{api: api, log: log, state: NewState()}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetCity records the city the user typed without searching.
func (c *Controller) SetCity(city string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = cityEntered(c.state, city)
}

// SetDaysToShow changes the history window. It does not refetch history;
// the next Search, or an explicit FetchHistory, uses the new value.
func (c *Controller) SetDaysToShow(days int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := daysSelected(c.state, days)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Search loads current conditions for city and then its history. A city
// that is empty after trimming is ignored. The returned error is also
// reflected in State().Status.Error, except ErrSuperseded.
func (c *Controller) Search(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.state = searchStarted(c.state, city)
	days := c.state.Query.DaysToShow
	c.mu.Unlock()

	payload, err := c.api.Weather(ctx, city)
	var snap WeatherSnapshot
	if err == nil {
		snap, err = payload.Snapshot()
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.state = searchFailed(c.state, err.Error())
		c.mu.Unlock()
		c.logFailure("weather fetch failed", city, err)
		return err
	}
	c.state = searchSucceeded(c.state, snap)
	c.mu.Unlock()

	// History failures are logged only; current conditions stay on screen.
	_ = c.fetchHistory(ctx, gen, city, days)

	c.mu.Lock()
	if gen == c.generation {
		c.cancel = nil
	}
	c.mu.Unlock()
	return nil
}

// FetchHistory replaces the history series with the last days days of city.
// Failures are logged and returned but leave the state untouched, including
// the visible error.
func (c *Controller) FetchHistory(ctx context.Context, city string, days int) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	return c.fetchHistory(ctx, gen, city, days)
}

func (c *Controller) fetchHistory(ctx context.Context, gen uint64, city string, days int) error {
	entries, err := c.api.History(ctx, city, days)
	if err != nil {
		c.logFailure("history fetch failed", city, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	c.state = historyLoaded(c.state, entries)
	return nil
}

// ExportCSV requests the CSV export of city. On failure the message is
// shown as the dashboard error.
func (c *Controller) ExportCSV(ctx context.Context, city string) (*Export, error) {
	city = strings.TrimSpace(city)

	body, err := c.api.Export(ctx, city)
	if err != nil {
		msg := exportFallback
		var fe *FetchError
		if errors.As(err, &fe) && fe.Message != "" {
			msg = fe.Message
		}
		c.mu.Lock()
		c.state = exportFailed(c.state, msg)
		c.mu.Unlock()
		c.logFailure("export failed", city, err)
		return nil, err
	}
	return &Export{Filename: ExportFilename(city), Body: body}, nil
}

func (c *Controller) logFailure(msg, city string, err error) {
	fields := []zap.Field{zap.String("city", city)}
	var fe *FetchError
	if errors.As(err, &fe) {
		fields = append(fields, zap.String("detail", fe.Detail()))
	} else {
		fields = append(fields, zap.Error(err))
	}
	c.log.Warn(msg, fields...)
}
