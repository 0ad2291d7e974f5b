// Package persist moves rosters between memory and their CSV backing
// files.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const fileMode = 0o644

// Sync loads rosters and rewrites them in full after every mutation.
type Sync struct {
	atomic bool
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Sync.
type Option func(*Sync)

// WithAtomicWrites toggles write-to-temp-then-rename. Enabled by default.
func WithAtomicWrites(enabled bool) Option {
	return func(s *Sync) {
		s.atomic = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

// NewSync creates a Sync.
func NewSync(opts ...Option) *Sync {
	s := &Sync{
		atomic: true,
		tracer: otel.Tracer("gatekeeper/persist"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Load reads and validates the roster at path and binds the result to it.
func (s *Sync) Load(ctx context.Context, path string, assigner roster.TokenAssigner) (*roster.Store, error) {
	_, span := s.tracer.Start(ctx, "roster.load", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	store, err := roster.Decode(f, assigner)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		var verr *roster.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	store.Bind(path)

	s.logger.Debug("roster loaded", "path", path, "participants", store.Len())
	return store, nil
}

// FlushIfBound rewrites the store's backing file. It is a no-op for an
// unbound store.
func (s *Sync) FlushIfBound(ctx context.Context, store *roster.Store) error {
	if store == nil || store.Source() == "" {
		return nil
	}
	return s.write(ctx, "flush", store.Source(), store)
}

// Write writes store to path unconditionally.
func (s *Sync) Write(ctx context.Context, path string, store *roster.Store) error {
	return s.write(ctx, "write", path, store)
}

func (s *Sync) write(ctx context.Context, op, path string, store *roster.Store) error {
	_, span := s.tracer.Start(ctx, "roster."+op, trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("participants", store.Len()),
	))
	defer span.End()

	var err error
	if s.atomic {
		err = writeAtomic(path, store)
	} else {
		err = writeInPlace(path, store)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("roster write failed", "op", op, "path", path, "error", err)
		return &IOError{Op: op, Path: path, Err: err}
	}

	s.logger.Debug("roster written", "op", op, "path", path, "participants", store.Len())
	return nil
}

func writeInPlace(path string, store *roster.Store) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	if err := roster.Encode(f, store); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeAtomic(path string, store *roster.Store) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = roster.Encode(tmp, store); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
