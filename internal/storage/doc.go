// Package storage provides the optional audit journal.
//
// The journal records notification attempts and iteration failures, append
// only. It is never read back to restore poll state: every process start
// polls from a fresh window.
package storage
