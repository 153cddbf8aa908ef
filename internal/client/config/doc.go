// Package config loads runtime configuration for the bottlemail CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed with BOTTLEMAIL_ (a .env file in the
//     working directory is loaded first, without overriding real variables).
//  4. Command-line flags.
//
// Supported flags
//
//	-s string          base URL of the letter server
//	-i int             poll interval (seconds)
//	-t int             send timeout (seconds)
//	-d string          path of the local SQLite cache
//	-m string          listen address of the metrics endpoint
//	-taps int          taps needed to open an arrived bottle
//	-device-id-file    file holding the platform device id
//	-log-level string  debug, info, warn or error
//
// # JSON schema
//
// Intervals accept "20s"-style strings or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "poll_interval": "20s",
//	  "send_timeout": "10s",
//	  "request_timeout": "30s",
//	  "fetch_attempts": 3,
//	  "open_taps": 3,
//	  "db_path": "bottlemail.db",
//	  "device_id_file": "",
//	  "metrics_addr": "",
//	  "log_level": "info"
//	}
package config
