package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the bottlemail CLI.
//
// Durations are time.Duration values; FetchAttempts bounds retries of
// idempotent reads (letterbox, check-user). An empty MetricsAddr disables the
// metrics endpoint.
type Config struct {
	ServerURL      string
	PollInterval   time.Duration
	SendTimeout    time.Duration
	RequestTimeout time.Duration
	FetchAttempts  int
	OpenTaps       int
	DBPath         string
	DeviceIDFile   string
	MetricsAddr    string
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.PollInterval = 20 * time.Second
	c.SendTimeout = 10 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.FetchAttempts = 3
	c.OpenTaps = 3
	c.DBPath = "bottlemail.db"
	c.DeviceIDFile = ""
	c.MetricsAddr = ""
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, an optional JSON file, the
// environment (including a .env file in the working directory) and finally
// command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	_ = godotenv.Load()
	return Load(os.Args[1:], os.LookupEnv)
}

// Load is LoadConfig with explicit arguments and environment lookup.
func Load(args []string, lookup func(string) (string, bool)) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, lookup)
	parseFlags(cfg, args)
	return cfg
}
