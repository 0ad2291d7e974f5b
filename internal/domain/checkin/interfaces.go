package checkin

import (
	"context"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// RosterLoader reads a roster from its backing file and writes back
// tokens issued while reading it.
type RosterLoader interface {
	Load(ctx context.Context, path string, assigner roster.TokenAssigner) (*roster.Store, error)
	FlushIfBound(ctx context.Context, store *roster.Store) error
}

// ActivityLog records and lists gate activity.
type ActivityLog interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}
