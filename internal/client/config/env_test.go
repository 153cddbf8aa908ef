package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	env := map[string]string{
		"BOTTLEMAIL_SERVER_URL":     "  http://env:8000  ",
		"BOTTLEMAIL_POLL_INTERVAL":  "1m",
		"BOTTLEMAIL_SEND_TIMEOUT":   "not-a-duration",
		"BOTTLEMAIL_FETCH_ATTEMPTS": "-2",
		"BOTTLEMAIL_OPEN_TAPS":      "4",
		"BOTTLEMAIL_LOG_LEVEL":      "   ",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, lookup)

	assert.Equal(t, "http://env:8000", cfg.ServerURL)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout, "malformed duration is ignored")
	assert.Equal(t, 3, cfg.FetchAttempts, "non-positive ints are ignored")
	assert.Equal(t, 4, cfg.OpenTaps)
	assert.Equal(t, "info", cfg.LogLevel, "blank values are ignored")
}

func TestParseEnv_NilLookup(t *testing.T) {
	cfg := &Config{ServerURL: "x"}
	parseEnv(cfg, nil)
	assert.Equal(t, "x", cfg.ServerURL)
}
