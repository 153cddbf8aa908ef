package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "server and interval", args: []string{"-s", "http://10.0.0.2:8000", "-i", "10"}, expectPanic: false,
			expected: &Config{ServerURL: "http://10.0.0.2:8000", PollInterval: 10 * time.Second}},
		{name: "timeout taps and db", args: []string{"-t", "5", "-taps", "4", "-d", "/tmp/b.db"}, expectPanic: false,
			expected: &Config{SendTimeout: 5 * time.Second, OpenTaps: 4, DBPath: "/tmp/b.db"}},
		{name: "unknown flags ignored", args: []string{"-c", "cfg.json", "-x", "1", "-log-level", "debug"}, expectPanic: false,
			expected: &Config{LogLevel: "debug"}},
		{name: "incorrect poll interval", args: []string{"-s", "http://10.0.0.2:8000", "-i", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config, tt.args) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config, tt.args) })
			}
		})
	}
}
