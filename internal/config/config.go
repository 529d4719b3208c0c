package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL        string        `validate:"required,url"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	BackendMaxRetries int           `validate:"gte=0,lte=10"`
	TrackInterval     time.Duration `validate:"gt=0"`
	NATSURL           string        `validate:"omitempty,url"`
	NATSSubjectPrefix string        `validate:"required"`
	LogNATSSubjects   bool
	MetricsAddr       string `validate:"omitempty,hostname_port"`
	HistoryLimit      int    `validate:"gte=0"`
	Location          *time.Location
	LogJSON           bool
	Debug             bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.APIBaseURL = strings.TrimRight(firstNonEmpty(os.Getenv("API_BASE_URL"), os.Getenv("EXPO_PUBLIC_API_BASE_URL")), "/")

	// Whole-request budget for one backend call, retries included
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_SEC: %q", v)
		}
		cfg.RequestTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.RequestTimeout = 60 * time.Second
	}

	if v := os.Getenv("BACKEND_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid BACKEND_MAX_RETRIES: %q", v)
		}
		cfg.BackendMaxRetries = n
	} else {
		cfg.BackendMaxRetries = 3
	}

	if v := os.Getenv("TRACK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TRACK_INTERVAL_MS: %q", v)
		}
		cfg.TrackInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TrackInterval = time.Second
	}

	// Empty NATS_URL disables snapshot publishing
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "journeys")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid HISTORY_LIMIT: %q", v)
		}
		cfg.HistoryLimit = n
	}

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.LogJSON = strings.EqualFold(os.Getenv("LOG_FORMAT"), "JSON")
	cfg.Debug = strings.EqualFold(os.Getenv("DEBUG"), "YES") || parseBool(os.Getenv("DEBUG"))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
