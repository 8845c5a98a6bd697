package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	defaultName     = "binance-exporter"
	defaultPort     = 8123
	defaultLogLevel = "info"
	defaultTimezone = "Europe/Paris"
)

// Config is resolved once at startup and never mutated afterwards. Missing
// credentials or malformed values are fatal before the exporter serves
// anything.
type Config struct {
	APIKey   string
	Secret   string
	Name     string // job label stamped on every record
	Port     int
	LogLevel zapcore.Level
	Location *time.Location
}

// Load reads the environment, honouring a .env file when present. Values
// already set in the real environment always win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	key := os.Getenv("BINANCE_KEY")
	if key == "" {
		return nil, fmt.Errorf("config: BINANCE_KEY environment variable must be set")
	}
	secret := os.Getenv("BINANCE_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("config: BINANCE_SECRET environment variable must be set")
	}

	name := os.Getenv("BINANCE_EXPORTER_NAME")
	if name == "" {
		name = defaultName
	}

	port := defaultPort
	if raw := os.Getenv("BINANCE_EXPORTER_PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("config: BINANCE_EXPORTER_PORT must be a valid port number, got %q", raw)
		}
		port = p
	}

	rawLevel := os.Getenv("BINANCE_EXPORTER_LOGLEVEL")
	if rawLevel == "" {
		rawLevel = defaultLogLevel
	}
	level, err := zapcore.ParseLevel(strings.ToLower(rawLevel))
	if err != nil {
		return nil, fmt.Errorf("config: BINANCE_EXPORTER_LOGLEVEL invalid: %q", rawLevel)
	}

	tz := os.Getenv("TZ")
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: TZ invalid: %q", tz)
	}

	return &Config{
		APIKey:   key,
		Secret:   secret,
		Name:     name,
		Port:     port,
		LogLevel: level,
		Location: loc,
	}, nil
}
