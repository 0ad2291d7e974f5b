package repository

import (
	"context"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// ActivityRepository manages activity log persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// RosterPersister writes rosters to their backing files
type RosterPersister interface {
	FlushIfBound(ctx context.Context, store *roster.Store) error
	Write(ctx context.Context, path string, store *roster.Store) error
}
