package notifier

import "time"

// Config controls outbound chat notifications.
type Config struct {
	ChatID string
	// RatePerSec bounds outgoing messages; the limiter waits, it never drops.
	RatePerSec int
	// SendTimeout bounds a single delivery attempt (0 = no extra bound).
	SendTimeout time.Duration
	// HistorySize is the number of recently sent texts kept in memory.
	HistorySize int
}

type HistoryItem struct {
	At   time.Time
	Text string
}
