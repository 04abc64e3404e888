package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/just-nibble/pr-tracker/internal/data"
)

// Mock implementation for the data.Store interface
type Store struct {
	mock.Mock
}

func (m *Store) MemberIDByUsername(ctx context.Context, username string) (uint, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(uint), args.Error(1)
}

func (m *Store) ContributionByNaturalKey(ctx context.Context, prID int64, owner, name string) (*data.Contribution, error) {
	args := m.Called(ctx, prID, owner, name)
	if c := args.Get(0); c != nil {
		return c.(*data.Contribution), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) CreateContribution(ctx context.Context, contribution *data.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *Store) ContributionsByRepo(ctx context.Context, owner, name string) ([]data.Contribution, error) {
	args := m.Called(ctx, owner, name)
	if c := args.Get(0); c != nil {
		return c.([]data.Contribution), args.Error(1)
	}
	return nil, args.Error(1)
}
