package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig configures the weather-aqi-monitor service.
type AppConfig struct {
	OpenWeatherAPIKey    string
	AQICNAPIKey          string
	WeatherAPIKey        string
	GoogleGeocoderAPIKey string
	OpenMeteoEnabled     bool

	// HTTPTimeout bounds every outbound upstream call.
	HTTPTimeout time.Duration

	// FetchInterval controls how often tracked cities are refreshed.
	FetchInterval time.Duration

	// TrackedCities are refreshed by the scheduler; empty disables it.
	TrackedCities []string

	StoreDriver     string        // memory, sqlite or postgres
	StoreDSN        string        // file path (sqlite) or connection string (postgres)
	StoreMaxHistory int           // max number of entries per city (0 = unlimited)
	StoreMaxAge     time.Duration // max age of entries (0 = unlimited)

	ExportDir string
	Port      string
	LogLevel  string
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
type fileConfig struct {
	TrackedCities []string `yaml:"tracked_cities"`
	FetchInterval string   `yaml:"fetch_interval"`
	Providers     struct {
		OpenMeteo bool `yaml:"openmeteo"`
	} `yaml:"providers"`
	Store struct {
		Driver     string `yaml:"driver"`
		DSN        string `yaml:"dsn"`
		MaxHistory int    `yaml:"max_history"`
		MaxAge     string `yaml:"max_age"`
	} `yaml:"store"`
	ExportDir string `yaml:"export_dir"`
	Port      string `yaml:"port"`
}

// Load reads configuration from .env, the optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		HTTPTimeout:   10 * time.Second,
		FetchInterval: 30 * time.Minute,
		StoreDriver:   "memory",
		StoreMaxAge:   30 * 24 * time.Hour,
		ExportDir:     "data_exports",
		Port:          "5000",
		LogLevel:      "info",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.OpenWeatherAPIKey == "" || cfg.AQICNAPIKey == "" {
		return nil, errors.New("missing API keys: set OPENWEATHER_API_KEY and AQICN_API_KEY")
	}
	return cfg, nil
}

func (cfg *AppConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(fc.TrackedCities) > 0 {
		cfg.TrackedCities = cleanCities(fc.TrackedCities)
	}
	if fc.FetchInterval != "" {
		d, err := time.ParseDuration(fc.FetchInterval)
		if err != nil {
			return fmt.Errorf("invalid fetch_interval: %w", err)
		}
		cfg.FetchInterval = d
	}
	cfg.OpenMeteoEnabled = cfg.OpenMeteoEnabled || fc.Providers.OpenMeteo
	if fc.Store.Driver != "" {
		cfg.StoreDriver = fc.Store.Driver
	}
	if fc.Store.DSN != "" {
		cfg.StoreDSN = fc.Store.DSN
	}
	if fc.Store.MaxHistory > 0 {
		cfg.StoreMaxHistory = fc.Store.MaxHistory
	}
	if fc.Store.MaxAge != "" {
		d, err := time.ParseDuration(fc.Store.MaxAge)
		if err != nil {
			return fmt.Errorf("invalid store.max_age: %w", err)
		}
		cfg.StoreMaxAge = d
	}
	if fc.ExportDir != "" {
		cfg.ExportDir = fc.ExportDir
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	return nil
}

func (cfg *AppConfig) applyEnv() error {
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.AQICNAPIKey = getenvDefault("AQICN_API_KEY", cfg.AQICNAPIKey)
	cfg.WeatherAPIKey = getenvDefault("WEATHERAPI_API_KEY", cfg.WeatherAPIKey)
	cfg.GoogleGeocoderAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleGeocoderAPIKey)
	cfg.OpenMeteoEnabled = getenvBool("OPENMETEO_ENABLED", cfg.OpenMeteoEnabled)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", cfg.StoreMaxAge); err != nil {
		return err
	}

	if v := os.Getenv("WEATHER_LOCATION_CITY"); v != "" {
		cfg.TrackedCities = cleanCities(strings.Split(v, ","))
	}

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = getenvDefault("STORE_DSN", cfg.StoreDSN)
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", cfg.StoreMaxHistory)
	cfg.ExportDir = getenvDefault("EXPORT_DIR", cfg.ExportDir)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	return nil
}

// DashboardConfig configures the terminal dashboard.
type DashboardConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	LogLevel   string
}

// LoadDashboard reads the dashboard settings from .env and the environment.
func LoadDashboard() (*DashboardConfig, error) {
	_ = godotenv.Load()

	timeout, err := getenvDuration("DASHBOARD_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	return &DashboardConfig{
		APIBaseURL: strings.TrimRight(getenvDefault("DASHBOARD_API_URL", "http://localhost:5000"), "/"),
		Timeout:    timeout,
		LogLevel:   getenvDefault("LOG_LEVEL", "warn"),
	}, nil
}

func cleanCities(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
