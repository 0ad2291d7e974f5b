// Package checkin hosts a single check-in engine: the loaded roster, its
// scan ledger and the decode pipeline feeding it.
package checkin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/artifact"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/pipeline"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// Service handles check-in business logic.
type Service struct {
	ledger      *ledger.Ledger
	pipeline    *pipeline.Adapter
	loader      RosterLoader
	issuer      roster.TokenAssigner
	activities  ActivityLog
	renderer    artifact.Renderer
	artifactDir string
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer renders artifacts when they are planned.
func WithRenderer(r artifact.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithArtifactDir sets the default directory for planned artifacts.
func WithArtifactDir(dir string) Option {
	return func(s *Service) {
		s.artifactDir = dir
	}
}

// NewService creates a new check-in service. activities may be nil.
func NewService(
	ldg *ledger.Ledger,
	loader RosterLoader,
	issuer roster.TokenAssigner,
	activities ActivityLog,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		ledger:      ldg,
		pipeline:    pipeline.NewAdapter(ldg, logger),
		loader:      loader,
		issuer:      issuer,
		activities:  activities,
		artifactDir: "qrcodes",
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the active roster with the one at path. On failure the
// previous roster stays active.
func (s *Service) Load(ctx context.Context, path string) (ledger.Count, error) {
	if strings.TrimSpace(path) == "" {
		return ledger.Count{}, ErrInvalidInput
	}
	store, err := s.loader.Load(ctx, path, s.issuer)
	if err != nil {
		return ledger.Count{}, fmt.Errorf("loading roster: %w", err)
	}
	// Issued tokens are written back before the roster goes live so a
	// token never reaches a scanner or an image without being on disk.
	if issued := store.IssuedTokens(); issued > 0 {
		if err := s.loader.FlushIfBound(ctx, store); err != nil {
			return ledger.Count{}, fmt.Errorf("saving issued tokens: %w", err)
		}
		s.logger.Info("issued tokens written back", "path", path, "issued", issued)
	}
	s.ledger.Replace(store)
	count := s.ledger.CurrentCount()

	s.logger.Info("roster loaded", "path", path, "participants", count.Total, "checked_in", count.Consumed)
	s.logActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeRosterLoaded,
		Summary:      fmt.Sprintf("loaded %d participants from %s", count.Total, path),
	})
	return count, nil
}

// Scan applies one batch of decoded strings.
func (s *Service) Scan(ctx context.Context, raw []string) ([]pipeline.Result, ledger.Count, error) {
	results, err := s.pipeline.ProcessBatch(ctx, raw)
	s.logResults(ctx, results)
	return results, s.ledger.CurrentCount(), err
}

// Run applies batches from a decoder feed until it closes or ctx is done.
func (s *Service) Run(ctx context.Context, batches <-chan []string, emit func([]pipeline.Result, error)) error {
	return s.pipeline.Run(ctx, batches, func(results []pipeline.Result, err error) {
		s.logResults(ctx, results)
		emit(results, err)
	})
}

// Reset clears every check-in.
func (s *Service) Reset(ctx context.Context) (ledger.Count, error) {
	if err := s.ledger.Reset(ctx); err != nil {
		return s.ledger.CurrentCount(), err
	}
	count := s.ledger.CurrentCount()
	s.logActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeRegistryReset,
		Summary:      fmt.Sprintf("reset %d participants", count.Total),
	})
	return count, nil
}

// Count returns the current check-in count.
func (s *Service) Count() ledger.Count {
	return s.ledger.CurrentCount()
}

// Search finds participants whose field contains query. field defaults to
// the ID number column.
func (s *Service) Search(field, query string) ([]roster.Participant, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if field == "" {
		field = roster.ColumnIDNumber
	}
	return s.ledger.FindByField(field, query)
}

// Export writes the roster, with artifact references, to path and makes
// path the target of later flushes.
func (s *Service) Export(ctx context.Context, path string) (ledger.Count, error) {
	if strings.TrimSpace(path) == "" {
		return ledger.Count{}, ErrInvalidInput
	}
	if err := s.ledger.ExportAs(ctx, path, artifact.Label); err != nil {
		return ledger.Count{}, err
	}
	count := s.ledger.CurrentCount()
	s.logActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeRosterExported,
		Summary:      fmt.Sprintf("exported %d participants to %s", count.Total, path),
	})
	return count, nil
}

// PlanArtifacts freezes artifact references and lists the image each
// participant needs. When a renderer is configured the images are
// generated into dir.
func (s *Service) PlanArtifacts(ctx context.Context, dir string) ([]artifact.Artifact, error) {
	if dir == "" {
		dir = s.artifactDir
	}
	changed, err := s.ledger.FreezeArtifactRefs(ctx, artifact.Label)
	if err != nil {
		return nil, err
	}
	if changed == 0 {
		// Nothing new to freeze; still make sure every planned token is on disk.
		if err := s.ledger.Flush(ctx); err != nil {
			return nil, err
		}
	}
	snapshot, err := s.ledger.Snapshot()
	if err != nil {
		return nil, err
	}
	plan := artifact.Plan(snapshot, dir)

	if s.renderer != nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return plan, fmt.Errorf("creating artifact dir: %w", err)
		}
		if err := artifact.Generate(ctx, s.renderer, plan); err != nil {
			return plan, fmt.Errorf("generating artifacts: %w", err)
		}
	}

	s.logActivity(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeArtifactsPlanned,
		Summary:      fmt.Sprintf("planned %d artifacts in %s", len(plan), dir),
	})
	return plan, nil
}

// RecentActivity lists gate activity, newest first.
func (s *Service) RecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	if s.activities == nil {
		return nil, nil
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, ErrInvalidInput
	}
	entries, err := s.activities.GetRecentActivity(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

func (s *Service) logResults(ctx context.Context, results []pipeline.Result) {
	for _, r := range results {
		tok := r.Token
		outcome := string(r.Outcome)
		summary := string(r.Outcome)
		if r.Participant != nil {
			summary = fmt.Sprintf("%s: %s", r.Outcome, r.Participant.Name())
		}
		s.logActivity(ctx, &activity.ActivityEntry{
			ActivityType: activity.TypeScanObserved,
			Token:        &tok,
			Outcome:      &outcome,
			Summary:      summary,
		})
	}
}

func (s *Service) logActivity(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to log activity", "type", entry.ActivityType, "error", err)
	}
}
