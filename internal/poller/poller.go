// Package poller runs the homework status loop: fetch, diff against the last
// reported state, notify on change.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"homeworkbot/internal/apperr"
	"homeworkbot/internal/homework"
	"homeworkbot/internal/storage"
	logx "homeworkbot/pkg/logx"
)

// FailurePrefix starts every failure text written into the report.
const FailurePrefix = "Сбой в работе программы: "

// Fetcher returns the raw decoded API response for a poll window.
type Fetcher interface {
	FetchStatuses(ctx context.Context, since int64) (any, error)
}

// Notifier delivers a chat message once.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Report is the last known (name, output) pair. Reports are compared by value.
type Report struct {
	Name   string
	Output string
}

// Message is the chat text for a report.
func (r Report) Message() string { return r.Name + ", " + r.Output }

// State is everything the loop carries between iterations.
type State struct {
	Window  int64
	Current Report
	Prev    Report
}

type Poller struct {
	fetch    Fetcher
	notify   Notifier
	store    storage.Store
	log      logx.Logger
	schedule cron.Schedule
	lookback time.Duration
	now      func() time.Time
	observe  func(State)
}

type Option func(*Poller)

// WithStore records notifications and failures in an audit journal.
func WithStore(st storage.Store) Option { return func(p *Poller) { p.store = st } }

// WithSchedule overrides the default 600s interval.
func WithSchedule(s cron.Schedule) Option { return func(p *Poller) { p.schedule = s } }

// WithLookback starts the first window d before now.
func WithLookback(d time.Duration) Option { return func(p *Poller) { p.lookback = d } }

// WithObserver is called by Run after every iteration.
func WithObserver(fn func(State)) Option { return func(p *Poller) { p.observe = fn } }

// WithClock overrides the clock (tests).
func WithClock(now func() time.Time) Option { return func(p *Poller) { p.now = now } }

func New(fetch Fetcher, notify Notifier, log logx.Logger, opts ...Option) (*Poller, error) {
	if fetch == nil {
		return nil, errors.New("poller: fetcher is nil")
	}
	if notify == nil {
		return nil, errors.New("poller: notifier is nil")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		fetch:    fetch,
		notify:   notify,
		log:      log,
		schedule: cron.Every(600 * time.Second),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// InitialState returns the state of a freshly started process.
func (p *Poller) InitialState() State {
	return State{Window: p.now().Add(-p.lookback).Unix()}
}

// Run polls immediately, then on every schedule slot until ctx is done.
// It only returns ctx's error.
func (p *Poller) Run(ctx context.Context) error {
	st := p.InitialState()
	p.log.Info("poller started", logx.Int64("window", st.Window))
	for {
		st = p.RunOnce(ctx, st)
		if p.observe != nil {
			p.observe(st)
		}

		now := p.now()
		next := p.schedule.Next(now)
		p.log.Debug("next poll scheduled", logx.Time("at", next), logx.Int64("window", st.Window))

		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			p.log.Info("poller stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunOnce performs a single iteration and returns the new state. It never
// sleeps and never fails: errors are classified, logged and, when allowed,
// folded into the report and forwarded to the chat.
func (p *Poller) RunOnce(ctx context.Context, st State) State {
	if err := p.iterate(ctx, &st); err != nil {
		p.fail(ctx, &st, err)
	}
	return st
}

func (p *Poller) iterate(ctx context.Context, st *State) error {
	resp, err := p.fetch.FetchStatuses(ctx, st.Window)
	if err != nil {
		return err
	}
	if ts, ok := homework.CurrentDate(resp); ok {
		st.Window = ts
	}

	list, err := homework.ExtractHomeworks(resp)
	if err != nil {
		return err
	}

	if len(list) > 0 {
		// The API lists the most recent change first.
		name, err := homework.Name(list[0])
		if err != nil {
			return err
		}
		out, err := homework.FormatStatusChange(list[0])
		if err != nil {
			return err
		}
		st.Current = Report{Name: name, Output: out}
	} else {
		st.Current.Output = homework.NoNewStatuses
	}

	sent, err := p.announce(ctx, st, st.Current.Message())
	if err != nil {
		return err
	}
	if !sent {
		p.log.Debug("status unchanged", logx.String("name", st.Current.Name))
	}
	return nil
}

// announce sends text if the current report differs from the last delivered
// one. The previous report only advances on successful delivery.
func (p *Poller) announce(ctx context.Context, st *State, text string) (bool, error) {
	if st.Current == st.Prev {
		return false, nil
	}
	err := p.notify.Notify(ctx, text)
	p.audit(ctx, storage.AuditEntry{
		Action: storage.ActionNotify,
		Name:   st.Current.Name,
		Text:   text,
		Window: st.Window,
		OK:     err == nil,
		Kind:   kindOf(err),
		Error:  errString(err),
	})
	if err != nil {
		return false, err
	}
	st.Prev = st.Current
	p.log.Info("notification delivered", logx.String("name", st.Current.Name))
	return true, nil
}

func (p *Poller) fail(ctx context.Context, st *State, err error) {
	if ctx.Err() != nil {
		// Shutting down; the failure is a side effect of cancellation.
		p.log.Debug("iteration interrupted", logx.Err(err))
		return
	}

	kind := apperr.KindOf(err)
	msg := FailurePrefix + err.Error()
	p.log.Error("iteration failed", logx.String("kind", kind.String()), logx.String("report", msg))
	p.audit(ctx, storage.AuditEntry{
		Action: storage.ActionError,
		Name:   st.Current.Name,
		Window: st.Window,
		Kind:   kind.String(),
		Error:  err.Error(),
	})

	if !apperr.ShouldNotify(err) {
		return
	}
	st.Current.Output = msg
	if _, nerr := p.announce(ctx, st, msg); nerr != nil {
		p.log.Error("failure report not delivered", logx.String("kind", apperr.KindOf(nerr).String()), logx.Err(nerr))
	}
}

func (p *Poller) audit(ctx context.Context, e storage.AuditEntry) {
	if p.store == nil {
		return
	}
	e.At = p.now()
	if err := p.store.AppendAudit(ctx, e); err != nil {
		p.log.Warn("audit append failed", logx.Err(err))
	}
}

func kindOf(err error) string {
	if err == nil {
		return ""
	}
	return apperr.KindOf(err).String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
