package enrichment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autograde-backend/internal/domain"
)

type mockRegistrationRepo struct {
	mock.Mock
}

func (m *mockRegistrationRepo) FindByRego(ctx context.Context, state, rego string) (*domain.Registration, error) {
	args := m.Called(ctx, state, rego)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func TestFixtureLookup(t *testing.T) {
	lookup := NewFixtureLookup(DefaultRegistrations, 0)
	ctx := context.Background()

	t.Run("Match", func(t *testing.T) {
		patch, err := lookup.Lookup(ctx, "vic", " dmh 427 ")
		require.NoError(t, err)
		assert.Equal(t, "SUBARU", *patch.Make)
		assert.Equal(t, "OUTBACK", *patch.Model)
		assert.Equal(t, "2025", *patch.Year)
		assert.Equal(t, "WAGON", *patch.Trim)
		assert.Equal(t, "GREEN", *patch.Colour)
		assert.Equal(t, "DMH427", *patch.RegNo)
		assert.Equal(t, "JF2BT9KL3SG078266", *patch.ChassisNo)
		assert.Equal(t, "ZA63989", *patch.EngineNo)
		assert.Equal(t, "2025-06-01", *patch.Date)
		assert.Nil(t, patch.Mileage)
	})

	t.Run("Wrong state", func(t *testing.T) {
		_, err := lookup.Lookup(ctx, "NSW", "DMH427")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("Cancelled during delay", func(t *testing.T) {
		slow := NewFixtureLookup(DefaultRegistrations, time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := slow.Lookup(cctx, "VIC", "DMH427")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRepositoryLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo := new(mockRegistrationRepo)
		repo.On("FindByRego", ctx, "QLD", "123ABC").Return(&domain.Registration{State: "QLD", Rego: "123ABC", Make: "MAZDA"}, nil)

		patch, err := NewRepositoryLookup(repo).Lookup(ctx, "qld", "123 abc")
		require.NoError(t, err)
		assert.Equal(t, []string{domain.VehicleMake, domain.VehicleRegNo}, patch.Keys())
		repo.AssertExpectations(t)
	})

	t.Run("Not registered", func(t *testing.T) {
		repo := new(mockRegistrationRepo)
		repo.On("FindByRego", ctx, "QLD", "ZZZ").Return(nil, sql.ErrNoRows)

		_, err := NewRepositoryLookup(repo).Lookup(ctx, "QLD", "ZZZ")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("Database down", func(t *testing.T) {
		repo := new(mockRegistrationRepo)
		repo.On("FindByRego", ctx, "QLD", "ZZZ").Return(nil, assert.AnError)

		_, err := NewRepositoryLookup(repo).Lookup(ctx, "QLD", "ZZZ")
		assert.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, ErrNoResult)
	})
}
