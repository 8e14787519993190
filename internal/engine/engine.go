// Package engine implements pricing, the order lifecycle, entitlements and
// the exam attempt state machine on top of the store.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/metrics"
	"github.com/pavelanni/academy/internal/store"
)

const defaultMaxRetries = 3

// Engine runs every operation in its own store transaction.
type Engine struct {
	store      *store.Store
	publisher  events.Publisher
	metrics    *metrics.Metrics
	now        func() time.Time
	baseURL    string
	maxRetries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets the destination of domain events.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBaseURL sets the prefix used for image URLs in public views.
func WithBaseURL(u string) Option {
	return func(e *Engine) { e.baseURL = u }
}

// WithMaxRetries bounds the retries of a transaction that hit a conflict.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// New returns an engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		publisher:  events.Nop{},
		now:        time.Now,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store for read-only collaborators.
func (e *Engine) Store() *store.Store {
	return e.store
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// txn collects the events of one operation so they are published only after
// the transaction commits.
type txn struct {
	*store.Tx
	pending []events.Event
}

func (t *txn) emit(ev events.Event) {
	t.pending = append(t.pending, ev)
}

// run executes fn in a transaction, retrying on conflicts and busy errors.
// A retry starts from scratch so it observes the rows that caused the
// conflict.
func (e *Engine) run(ctx context.Context, op string, fn func(t *txn) error) error {
	defer e.metrics.Timer(op)()

	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		t := &txn{}
		err = e.store.InTx(ctx, func(tx *store.Tx) error {
			t.Tx = tx
			return fn(t)
		})
		if err == nil {
			e.publish(ctx, t.pending)
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		slog.Warn("retrying transaction", "op", op, "attempt", attempt+1, "error", err)
	}
	if code := apperr.CodeOf(err); code != "" {
		e.metrics.DomainError(op, code)
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, apperr.ErrDuplicateOrder) || errors.Is(err, apperr.ErrAlreadyExists) {
		return false
	}
	if errors.Is(err, apperr.KindConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (e *Engine) publish(ctx context.Context, evs []events.Event) {
	for _, ev := range evs {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			slog.Error("failed to publish event", "type", ev.Type, "id", ev.ID, "error", err)
		}
	}
}

// clean trims an optional identifier or code.
func clean(s string) string {
	return strings.TrimSpace(s)
}
