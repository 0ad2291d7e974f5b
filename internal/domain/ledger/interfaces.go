package ledger

import (
	"context"

	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// Persister writes roster state to durable storage.
type Persister interface {
	FlushIfBound(ctx context.Context, store *roster.Store) error
	Write(ctx context.Context, path string, store *roster.Store) error
}
