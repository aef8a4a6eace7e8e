// Package relay drives the fetch, format and publish cycle.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"paxgbot/internal/fetcher"
	"paxgbot/internal/format"
	"paxgbot/internal/metrics"
)

const (
	// DefaultInterval is the wait between regular cycles
	DefaultInterval = 5 * time.Minute
	// DefaultRetryDelay is the wait after a cycle that failed unexpectedly
	DefaultRetryDelay = time.Minute
)

// Publisher delivers a formatted message and reports whether it arrived
type Publisher interface {
	Publish(ctx context.Context, text string) bool
}

// Option configures a Loop
type Option func(*Loop)

// WithInterval sets the wait between regular cycles
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithRetryDelay sets the wait after an unexpected error
func WithRetryDelay(d time.Duration) Option {
	return func(l *Loop) {
		l.retryDelay = d
	}
}

// WithMetrics records every cycle in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithClock replaces time.Now for message timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// Loop repeatedly fetches a quote, formats it and publishes it.
// It runs on a single goroutine; each cycle makes at most two network calls.
type Loop struct {
	fetcher   fetcher.Fetcher
	formatter *format.Formatter
	publisher Publisher
	metrics   *metrics.Metrics

	interval   time.Duration
	retryDelay time.Duration
	now        func() time.Time

	state atomic.Int32
}

// New creates a Loop in the running state
func New(f fetcher.Fetcher, fm *format.Formatter, p Publisher, opts ...Option) *Loop {
	l := &Loop{
		fetcher:    f,
		formatter:  fm,
		publisher:  p,
		interval:   DefaultInterval,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.state.Store(int32(StateRunning))
	return l
}

// State reports whether the loop is still running
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run executes cycles until ctx is done. Failed cycles never stop the loop;
// only cancellation does, after which Run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.state.Store(int32(StateStopped))
		slog.Info("bot stopped")
	}()

	for ctx.Err() == nil {
		outcome := l.RunOnce(ctx)
		if outcome == OutcomeInterrupted || ctx.Err() != nil {
			return nil
		}

		delay := l.delay(outcome)
		slog.Info("waiting until next update", "outcome", outcome.String(), "delay", delay.String())

		if !sleep(ctx, delay) {
			return nil
		}
	}

	return nil
}

// RunOnce performs a single fetch, format and publish pass.
// A failed fetch still publishes the failure notice.
func (l *Loop) RunOnce(ctx context.Context) (outcome Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected error in update cycle", "error", fmt.Sprint(r))
			outcome = OutcomeUnexpectedError
		}
		if l.metrics != nil && outcome != OutcomeInterrupted {
			l.metrics.ObserveCycle(outcome.String(), time.Since(start))
		}
	}()

	if ctx.Err() != nil {
		return OutcomeInterrupted
	}

	quote, err := l.fetcher.Fetch(ctx)
	if err != nil {
		slog.Error("error fetching price", "fetcher", l.fetcher.Key(), "error", err)
		quote = nil
	}

	if ctx.Err() != nil {
		return OutcomeInterrupted
	}

	if l.metrics != nil {
		l.metrics.ObserveQuote(quote)
	}

	text := l.formatter.Format(quote, l.now())

	switch {
	case !l.publisher.Publish(ctx, text):
		return OutcomePublishFailed
	case quote == nil:
		return OutcomeFetchFailed
	default:
		return OutcomeSuccess
	}
}

func (l *Loop) delay(o Outcome) time.Duration {
	if o == OutcomeUnexpectedError {
		return l.retryDelay
	}
	return l.interval
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
