// Package ledger is the check-in state machine. It owns the loaded roster
// and a token index over it, and serializes every mutation.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// Ledger tracks which tokens have been consumed. The roster is
// authoritative; the index is rebuilt from it on Replace and Reconcile.
type Ledger struct {
	mu        sync.RWMutex
	store     *roster.Store
	byToken   map[string]*roster.Participant
	consumed  map[string]struct{}
	persister Persister
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// New creates an empty ledger. Call Replace to load a roster.
func New(persister Persister, opts ...Option) *Ledger {
	l := &Ledger{
		persister: persister,
		byToken:   map[string]*roster.Participant{},
		consumed:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// Replace discards the current roster and adopts store.
func (l *Ledger) Replace(store *roster.Store) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store = store
	l.rebuild()
	l.metrics.setCount(l.count())
}

// Reconcile rebuilds the token index from the roster.
func (l *Ledger) Reconcile() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebuild()
	l.metrics.setCount(l.count())
}

// Loaded reports whether a roster is present.
func (l *Ledger) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store != nil
}

// Observe presents a token. Only a pending token is mutated; it is marked
// checked in and the roster is flushed before Observe returns. A flush
// error is returned alongside the outcome and does not undo the check-in.
func (l *Ledger) Observe(ctx context.Context, token string) (Outcome, roster.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return OutcomeUnknown, roster.Participant{}, ErrNotFound
	}

	p, ok := l.byToken[token]
	if !ok {
		l.metrics.observeOutcome(OutcomeUnknown)
		return OutcomeUnknown, roster.Participant{}, nil
	}
	if _, done := l.consumed[token]; done {
		l.metrics.observeOutcome(OutcomeAlreadyConsumed)
		return OutcomeAlreadyConsumed, p.Clone(), nil
	}

	p.CheckedIn = true
	l.consumed[token] = struct{}{}
	l.metrics.observeOutcome(OutcomeNewlyConsumed)
	l.metrics.setCount(l.count())
	l.logger.Info("participant checked in", "token", token, "name", p.Name())

	if err := l.flush(ctx); err != nil {
		return OutcomeNewlyConsumed, p.Clone(), err
	}
	return OutcomeNewlyConsumed, p.Clone(), nil
}

// Reset returns every participant to pending and flushes.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return ErrNotFound
	}

	for _, p := range l.store.Rows() {
		p.CheckedIn = false
	}
	clear(l.consumed)
	l.metrics.incrementResets()
	l.metrics.setCount(l.count())
	l.logger.Info("check-ins reset", "participants", l.store.Len())

	return l.flush(ctx)
}

// CurrentCount returns consumed and total participants. Both are zero
// when no roster is loaded.
func (l *Ledger) CurrentCount() Count {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count()
}

// StateOf reports the check-in state of token.
func (l *Ledger) StateOf(token string) State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.byToken[token]; !ok {
		return StateUnknown
	}
	if _, ok := l.consumed[token]; ok {
		return StateConsumed
	}
	return StatePending
}

// FindByField searches the roster; see roster.Store.FindByField.
func (l *Ledger) FindByField(field, substring string) ([]roster.Participant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.store == nil {
		return nil, ErrNotFound
	}
	return l.store.FindByField(field, substring), nil
}

// Snapshot returns a deep copy of the roster.
func (l *Ledger) Snapshot() (*roster.Store, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.store == nil {
		return nil, ErrNotFound
	}
	return l.store.Clone(), nil
}

// FreezeArtifactRefs stores label(p) on every participant that has no
// artifact reference yet and flushes if anything changed.
func (l *Ledger) FreezeArtifactRefs(ctx context.Context, label func(roster.Participant) string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return 0, ErrNotFound
	}
	changed := freeze(l.store, label)
	if changed == 0 {
		return 0, nil
	}
	return changed, l.flush(ctx)
}

// Flush rewrites the bound roster file.
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return ErrNotFound
	}
	return l.flush(ctx)
}

// ExportAs freezes artifact references, writes the roster to path and
// rebinds automatic flushes to it. The frozen references and the binding
// only take effect once the write succeeds.
func (l *Ledger) ExportAs(ctx context.Context, path string, label func(roster.Participant) string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return ErrNotFound
	}
	next := l.store.Clone()
	freeze(next, label)
	if err := l.persister.Write(ctx, path, next); err != nil {
		return fmt.Errorf("exporting roster: %w", err)
	}
	next.Bind(path)
	l.store = next
	l.rebuild()
	l.logger.Info("roster exported", "path", path, "participants", l.store.Len())
	return nil
}

func freeze(store *roster.Store, label func(roster.Participant) string) int {
	changed := 0
	for _, p := range store.Rows() {
		if p.ArtifactRef == "" {
			p.ArtifactRef = label(*p)
			changed++
		}
	}
	return changed
}

func (l *Ledger) flush(ctx context.Context) error {
	if err := l.persister.FlushIfBound(ctx, l.store); err != nil {
		l.metrics.incrementFlushFailures()
		l.logger.Error("roster flush failed", "path", l.store.Source(), "error", err)
		return fmt.Errorf("flushing roster: %w", err)
	}
	return nil
}

func (l *Ledger) rebuild() {
	l.byToken = map[string]*roster.Participant{}
	l.consumed = map[string]struct{}{}
	if l.store == nil {
		return
	}
	for _, p := range l.store.Rows() {
		if p.Token == "" {
			continue
		}
		l.byToken[p.Token] = p
		if p.CheckedIn {
			l.consumed[p.Token] = struct{}{}
		}
	}
}

func (l *Ledger) count() Count {
	if l.store == nil {
		return Count{}
	}
	return Count{Consumed: len(l.consumed), Total: l.store.Len()}
}
