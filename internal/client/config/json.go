package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bottlemail/internal/flagx"
	"github.com/dmitrijs2005/bottlemail/internal/timex"
)

// JsonConfig is the on-disk shape of the config file.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	PollInterval   timex.Duration `json:"poll_interval"`
	SendTimeout    timex.Duration `json:"send_timeout"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	FetchAttempts  int            `json:"fetch_attempts"`
	OpenTaps       int            `json:"open_taps"`
	DBPath         string         `json:"db_path"`
	DeviceIDFile   string         `json:"device_id_file"`
	MetricsAddr    string         `json:"metrics_addr"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config. Fields left
// out of the file (zero values) keep their current value. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.PollInterval.Duration > 0 {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.SendTimeout.Duration > 0 {
		cfg.SendTimeout = jc.SendTimeout.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.FetchAttempts > 0 {
		cfg.FetchAttempts = jc.FetchAttempts
	}
	if jc.OpenTaps > 0 {
		cfg.OpenTaps = jc.OpenTaps
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.DeviceIDFile != "" {
		cfg.DeviceIDFile = jc.DeviceIDFile
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
