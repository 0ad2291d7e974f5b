// Package pipeline feeds decoded strings from an external decoder into
// the ledger, one batch per captured frame.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Observer applies a single decoded token.
type Observer interface {
	Observe(ctx context.Context, token string) (ledger.Outcome, roster.Participant, error)
}

// Result is the outcome for one decoded string.
type Result struct {
	Raw         string              `json:"raw"`
	Token       string              `json:"token"`
	Outcome     ledger.Outcome      `json:"outcome"`
	Participant *roster.Participant `json:"participant,omitempty"`
}

// Adapter forwards decoded strings to an Observer strictly in order.
type Adapter struct {
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(observer Observer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{
		observer: observer,
		tracer:   otel.Tracer("gatekeeper/pipeline"),
		logger:   logger,
	}
}

// ProcessBatch observes each string in order and returns one result per
// input. Flush failures do not stop the batch; they are joined and
// returned once every string has been applied. A missing roster stops
// the batch immediately.
func (a *Adapter) ProcessBatch(ctx context.Context, raw []string) ([]Result, error) {
	ctx, span := a.tracer.Start(ctx, "pipeline.batch", trace.WithAttributes(attribute.Int("batch.size", len(raw))))
	defer span.End()

	results := make([]Result, 0, len(raw))
	var errs []error
	for _, s := range raw {
		tok := strings.TrimSpace(s)
		outcome, p, err := a.observer.Observe(ctx, tok)
		if errors.Is(err, ledger.ErrNotFound) {
			span.SetStatus(codes.Error, err.Error())
			return results, err
		}
		if err != nil {
			errs = append(errs, err)
		}

		result := Result{Raw: s, Token: tok, Outcome: outcome}
		if outcome != ledger.OutcomeUnknown {
			result.Participant = &p
		}
		results = append(results, result)
		span.AddEvent("observed", trace.WithAttributes(attribute.String("outcome", string(outcome))))
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return results, err
}

// Run processes batches until the channel closes or ctx is done. Batches
// are never interrupted; cancellation takes effect between them. emit
// receives every processed batch, including partial ones on error.
func (a *Adapter) Run(ctx context.Context, batches <-chan []string, emit func([]Result, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := a.ProcessBatch(ctx, batch)
			emit(results, err)
			if errors.Is(err, ledger.ErrNotFound) {
				return err
			}
			if err != nil {
				a.logger.Warn("batch applied with errors", "size", len(batch), "error", err)
			}
		}
	}
}
