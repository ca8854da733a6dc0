package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Settings is Config with every duration parsed and defaults filled in.
type Settings struct {
	Endpoint       string
	Schedule       string
	RequestTimeout time.Duration
	Lookback       time.Duration

	TelegramAPIURL string
	SendTimeout    time.Duration
	RatePerSec     int

	StorageDriver      string
	StoragePath        string
	StorageBusyTimeout time.Duration
}

// Resolve validates cfg and converts it into Settings.
func (c *Config) Resolve() (Settings, error) {
	if c == nil {
		return Settings{}, errors.New("config is nil")
	}
	var (
		s    Settings
		errs []error
	)
	dur := func(path, raw string, def time.Duration) time.Duration {
		d, err := durationOrDefault(path, raw, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	s.Endpoint = strings.TrimSpace(c.Poller.Endpoint)
	s.Schedule = strings.TrimSpace(c.Poller.Schedule)
	if s.Schedule == "" {
		s.Schedule = Default().Poller.Schedule
	}
	s.RequestTimeout = dur("poller.request_timeout", c.Poller.RequestTimeout, 30*time.Second)
	s.Lookback = dur("poller.lookback", c.Poller.Lookback, 0)

	s.TelegramAPIURL = strings.TrimSpace(c.Telegram.APIURL)
	s.SendTimeout = dur("telegram.send_timeout", c.Telegram.SendTimeout, 15*time.Second)
	s.RatePerSec = c.Telegram.RatePerSec
	if s.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("telegram.rate_per_sec: must be >= 0"))
	}

	if st := c.Storage; st != nil {
		s.StorageDriver = strings.ToLower(strings.TrimSpace(st.Driver))
		s.StoragePath = strings.TrimSpace(st.Path)
		s.StorageBusyTimeout = dur("storage.busy_timeout", st.BusyTimeout, 0)
		if s.StorageDriver != "" && s.StorageDriver != "none" && s.StoragePath == "" {
			errs = append(errs, fmt.Errorf("storage.path: required for driver %q", s.StorageDriver))
		}
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s, nil
}

// durationOrDefault parses a Go duration string. Empty or zero yields def,
// negative values are rejected. path names the config key in errors.
func durationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
