package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON Lines file
//   - "sqlite": SQLite database file (build tag "sqlite")
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Audit actions.
const (
	ActionNotify = "notify"
	ActionError  = "error"
)

// AuditEntry records one notable poll event.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Name   string    `json:"name,omitempty"`
	Text   string    `json:"text,omitempty"`
	Window int64     `json:"window"`
	OK     bool      `json:"ok"`
	Kind   string    `json:"kind,omitempty"`
	Error  string    `json:"err,omitempty"`
}
