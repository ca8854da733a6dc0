// Package systemd reports service state to systemd (Type=notify units).
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd that startup finished.
// It reports false (and no error) when not running under systemd.
func Ready() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyReady) }

// Stopping tells systemd that shutdown began.
func Stopping() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by `systemctl status`.
func Status(msg string) (bool, error) { return daemon.SdNotify(false, "STATUS="+msg) }
