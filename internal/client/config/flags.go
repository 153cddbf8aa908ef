package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/flagx"
)

var ownFlags = []string{"-s", "-i", "-t", "-d", "-m", "-taps", "-device-id-file", "-log-level"}

// parseFlags overlays cfg with command-line flags. Only the flags listed in
// ownFlags are considered, so -c/-config and unknown flags pass through.
// It panics on malformed values.
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "base URL of the letter server")
	pollInterval := fs.Int("i", int(cfg.PollInterval.Seconds()), "poll interval (in seconds)")
	sendTimeout := fs.Int("t", int(cfg.SendTimeout.Seconds()), "send timeout (in seconds)")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local cache database")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.IntVar(&cfg.OpenTaps, "taps", cfg.OpenTaps, "taps needed to open a bottle")
	fs.StringVar(&cfg.DeviceIDFile, "device-id-file", cfg.DeviceIDFile, "file with the platform device id")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		panic(err)
	}

	// second-granular flags only override what was given explicitly
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.PollInterval = time.Duration(*pollInterval) * time.Second
		case "t":
			cfg.SendTimeout = time.Duration(*sendTimeout) * time.Second
		}
	})
}
