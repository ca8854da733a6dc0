package config

// Config holds the tunables read from the optional config file.
// Secrets never live here; see Credentials.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Poller   PollerConfig   `json:"poller"`
	Telegram TelegramConfig `json:"telegram"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PollerConfig controls the homework status poll loop.
//
// All durations are Go duration strings (e.g. "30s", "10m").
type PollerConfig struct {
	// Endpoint of the homework status API.
	Endpoint string `json:"endpoint,omitempty"`

	// Schedule is an interval ("600s", "10m", "00:10") or a cron expression
	// ("*/10 * * * *", "@every 10m").
	Schedule string `json:"schedule"`

	// RequestTimeout bounds a single API call.
	RequestTimeout string `json:"request_timeout,omitempty"`

	// Lookback moves the first poll window into the past (default "0s": now).
	Lookback string `json:"lookback,omitempty"`
}

type TelegramConfig struct {
	// APIURL overrides the Bot API base URL (local bot API servers).
	APIURL      string `json:"api_url,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

// StorageConfig controls the optional audit journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/homework.audit.jsonl" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Default returns the configuration used when no config file exists.
// Parse decodes the file on top of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Enabled: true, Path: "./homework.log"},
		},
		Poller: PollerConfig{
			Schedule:       "600s",
			RequestTimeout: "30s",
			Lookback:       "0s",
		},
		Telegram: TelegramConfig{
			SendTimeout: "15s",
			RatePerSec:  1,
		},
	}
}
