// Package apperr classifies failures of a poll iteration.
//
// Every component error is tagged with a Kind at its point of origin. The
// poller inspects Kind.ShouldNotify to decide whether a failure may be
// forwarded to the chat or must only be logged.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidResponseCode
	KindConnection
	KindType
	KindMissingKey
	KindValue
	KindEmptyResponse
	KindTelegram
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInvalidResponseCode:
		return "invalid_response_code"
	case KindConnection:
		return "connection"
	case KindType:
		return "type"
	case KindMissingKey:
		return "missing_key"
	case KindValue:
		return "value"
	case KindEmptyResponse:
		return "empty_response"
	case KindTelegram:
		return "telegram"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ShouldNotify reports whether a failure of this kind may be sent to the chat.
// Empty API responses and delivery failures never are: reporting a broken
// notifier through the notifier would loop forever.
func (k Kind) ShouldNotify() bool {
	switch k {
	case KindEmptyResponse, KindTelegram, KindConfig:
		return false
	default:
		return true
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	// Set for KindInvalidResponseCode only.
	StatusCode int
	Reason     string
	Body       string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindValue}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Msg: msg, Err: err} }

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// ShouldNotify reports whether err may be forwarded to the chat.
// Unclassified errors are reported.
func ShouldNotify(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).ShouldNotify()
}
