// Package app wires the gate's services from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/gatekeeper/internal/config"
	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/artifact"
	"github.com/rpggio/gatekeeper/internal/domain/checkin"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/token"
	"github.com/rpggio/gatekeeper/internal/persist"
	"github.com/rpggio/gatekeeper/internal/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds one engine instance and the resources it owns.
type App struct {
	Checkin  *checkin.Service
	Registry *prometheus.Registry
	db       *sqlite.DB
}

// New opens the audit database, builds the check-in service and loads the
// configured roster, if any.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := ensureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	persister := persist.NewSync(
		persist.WithAtomicWrites(cfg.Persist.AtomicWrites),
		persist.WithLogger(logger),
	)
	ldg := ledger.New(persister,
		ledger.WithLogger(logger),
		ledger.WithMetrics(ledger.NewMetrics(registry)),
	)

	opts := []checkin.Option{checkin.WithArtifactDir(cfg.Roster.ArtifactDir)}
	if len(cfg.Roster.RenderCommand) > 0 {
		renderer, err := artifact.NewCommandRenderer(cfg.Roster.RenderCommand)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("configure renderer: %w", err)
		}
		opts = append(opts, checkin.WithRenderer(renderer))
	}

	svc := checkin.NewService(
		ldg,
		persister,
		token.NewIssuer(),
		activity.NewService(sqlite.NewActivityRepository(db), logger),
		logger,
		opts...,
	)

	if cfg.Roster.Path != "" {
		if _, err := svc.Load(ctx, cfg.Roster.Path); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &App{Checkin: svc, Registry: registry, db: db}, nil
}

// Close releases the audit database.
func (a *App) Close() error {
	return a.db.Close()
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
