package config

import (
	"strconv"
	"strings"
	"time"
)

const envPrefix = "BOTTLEMAIL_"

// parseEnv overlays cfg with BOTTLEMAIL_* variables. Malformed values are
// ignored and the current value is kept.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}

	cfg.ServerURL = envString(lookup, "SERVER_URL", cfg.ServerURL)
	cfg.PollInterval = envDuration(lookup, "POLL_INTERVAL", cfg.PollInterval)
	cfg.SendTimeout = envDuration(lookup, "SEND_TIMEOUT", cfg.SendTimeout)
	cfg.RequestTimeout = envDuration(lookup, "REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.FetchAttempts = envInt(lookup, "FETCH_ATTEMPTS", cfg.FetchAttempts)
	cfg.OpenTaps = envInt(lookup, "OPEN_TAPS", cfg.OpenTaps)
	cfg.DBPath = envString(lookup, "DB_PATH", cfg.DBPath)
	cfg.DeviceIDFile = envString(lookup, "DEVICE_ID_FILE", cfg.DeviceIDFile)
	cfg.MetricsAddr = envString(lookup, "METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = envString(lookup, "LOG_LEVEL", cfg.LogLevel)
}

func envString(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(envPrefix + key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(envPrefix + key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func envDuration(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(envPrefix + key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
