package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

// Refresher fetches and records current conditions for a city.
type Refresher interface {
	Current(ctx context.Context, city string) (weather.Snapshot, error)
}

// Scheduler periodically refreshes tracked cities so their history grows
// without anyone searching for them.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	cities    []string
	interval  time.Duration
	timeout   time.Duration
	log       *zap.Logger
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, service Refresher, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		cities:    cities,
		interval:  interval,
		timeout:   30 * time.Second,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.log.Info("scheduler: no tracked cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval < time.Minute {
		interval = 30 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler started", zap.Strings("cities", s.cities), zap.Duration("interval", interval))
	return nil
}

// RunOnce refreshes every tracked city concurrently and returns the number
// of cities that failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.log.Debug("scheduler: running refresh job")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, city := range s.cities {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			if _, err := s.service.Current(ctx, city); err != nil {
				s.log.Warn("scheduler: refresh failed", zap.String("city", city), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.log.Debug("scheduler: completed refresh job", zap.Int("failed", failed))
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
