// Package notifier delivers status notifications to the configured chat.
//
// # Transport
//
// The service delegates delivery to a kit.Sender implementation (the
// Telegram adapter). Every call is a single attempt: failures are returned
// as apperr.KindTelegram errors, which the poller only logs so a broken
// chat never triggers notifications about itself.
//
// # History
//
// For debugging, the service keeps a small in-memory history of recently
// delivered notifications.
package notifier
