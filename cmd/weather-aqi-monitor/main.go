package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-aqi-monitor/internal/api/http"
	"github.com/i474232898/weather-aqi-monitor/internal/config"
	"github.com/i474232898/weather-aqi-monitor/internal/logging"
	"github.com/i474232898/weather-aqi-monitor/internal/scheduler"
	"github.com/i474232898/weather-aqi-monitor/internal/store"
	"github.com/i474232898/weather-aqi-monitor/internal/weather"
	"github.com/i474232898/weather-aqi-monitor/internal/weather/providers"
)

// geocodeCacheSize is how many cities keep their coordinates in memory.
const geocodeCacheSize = 100

func main() {
	// Load configuration (.env, optional YAML overlay, environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// History store with configured retention.
	hist, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, cfg.StoreMaxHistory, cfg.StoreMaxAge, logg)
	if err != nil {
		logg.Fatal("failed to open history store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logg.Warn("closing history store", zap.Error(err))
		}
	}()

	// Weather providers with resilience (backoff + circuit breaker).
	provs := []weather.Provider{providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	if cfg.OpenMeteoEnabled {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient))
	}

	// OpenWeather geocoding first, Google as the fallback when configured.
	geocoders := []weather.Geocoder{providers.NewOpenWeatherGeocoder(httpClient, cfg.OpenWeatherAPIKey)}
	if cfg.GoogleGeocoderAPIKey != "" {
		geocoders = append(geocoders, providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey))
	}
	geo := providers.NewCachedGeocoder(providers.NewGeocoderChain(logg, geocoders...), geocodeCacheSize)

	service := weather.NewService(hist, geo, providers.NewWAQIProvider(httpClient, cfg.AQICNAPIKey), provs, weather.Options{
		Logger:    logg,
		ExportDir: cfg.ExportDir,
	})

	names := make([]string, 0, len(provs))
	for _, p := range provs {
		names = append(names, p.Name())
	}
	logg.Info("service configured",
		zap.Strings("providers", names),
		zap.String("store", cfg.StoreDriver),
		zap.Strings("tracked_cities", cfg.TrackedCities),
	)

	// Scheduler that periodically refreshes tracked cities.
	sched := scheduler.New(cfg.TrackedCities, cfg.FetchInterval, service, logg)
	if err := sched.Start(); err != nil {
		logg.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-aqi-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-aqi-monitor",
		})
	})

	httpapi.RegisterRoutes(app, service, logg)

	go func() {
		logg.Info("listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error("error during shutdown", zap.Error(err))
	}
}
