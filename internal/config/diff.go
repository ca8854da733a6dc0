package config

import (
	"reflect"

	logx "homeworkbot/pkg/logx"
)

// SummarizeConfigChange returns the list of changed sections and safe
// structured attrs for logging. restart lists sections that only take
// effect after a process restart (everything except logging).
func SummarizeConfigChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restart []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file.enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Poller != newCfg.Poller {
		changed = append(changed, "poller")
		restart = append(restart, "poller")
		attrs = append(attrs,
			logx.String("poller.schedule", newCfg.Poller.Schedule),
			logx.String("poller.request_timeout", newCfg.Poller.RequestTimeout),
		)
	}
	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		restart = append(restart, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.api_url_set", newCfg.Telegram.APIURL != ""),
			logx.Int("telegram.rate_per_sec", newCfg.Telegram.RatePerSec),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
	}
	return changed, attrs, restart
}

// LogConfig maps the logging section to logx.Config.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
