package mocks

import (
	"context"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"github.com/rpggio/gatekeeper/internal/repository"
	"github.com/stretchr/testify/mock"
)

var (
	_ repository.ActivityRepository = (*ActivityRepository)(nil)
	_ repository.RosterPersister    = (*RosterPersister)(nil)
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// RosterPersister is a mock for repository.RosterPersister.
type RosterPersister struct {
	mock.Mock
}

func (m *RosterPersister) FlushIfBound(ctx context.Context, store *roster.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *RosterPersister) Write(ctx context.Context, path string, store *roster.Store) error {
	args := m.Called(ctx, path, store)
	return args.Error(0)
}
