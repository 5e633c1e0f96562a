package enrichment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
	"autograde-backend/internal/utils"
)

// DefaultRegistrations is the demonstration register used when no
// registration database is configured.
var DefaultRegistrations = []domain.Registration{
	{
		State:          "VIC",
		Rego:           "DMH427",
		Make:           "SUBARU",
		Model:          "OUTBACK",
		Year:           "2025",
		Trim:           "WAGON",
		Colour:         "GREEN",
		VIN:            "JF2BT9KL3SG078266",
		EngineNo:       "ZA63989",
		ComplianceDate: "2025-06-01",
	},
}

type fixtureLookup struct {
	rows  map[string]domain.Registration
	delay time.Duration
}

// NewFixtureLookup serves lookups from an in-memory register. delay
// simulates provider latency and honours cancellation.
func NewFixtureLookup(rows []domain.Registration, delay time.Duration) RegistrationLookup {
	m := make(map[string]domain.Registration, len(rows))
	for _, r := range rows {
		m[registrationKey(r.State, r.Rego)] = r
	}
	return &fixtureLookup{rows: m, delay: delay}
}

func registrationKey(state, rego string) string {
	return utils.NormalizeState(state) + "|" + utils.NormalizeRego(rego)
}

func (f *fixtureLookup) Lookup(ctx context.Context, state, rego string) (domain.VehiclePatch, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.VehiclePatch{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	r, ok := f.rows[registrationKey(state, rego)]
	if !ok {
		return domain.VehiclePatch{}, ErrNoResult
	}
	return r.Patch(), nil
}

type repositoryLookup struct {
	repo repository.RegistrationRepository
}

// NewRepositoryLookup serves lookups from the registrations table.
func NewRepositoryLookup(repo repository.RegistrationRepository) RegistrationLookup {
	return &repositoryLookup{repo: repo}
}

func (l *repositoryLookup) Lookup(ctx context.Context, state, rego string) (domain.VehiclePatch, error) {
	st, rg := utils.NormalizeState(state), utils.NormalizeRego(rego)
	started := time.Now()
	logger.ExternalServiceCall("registrations", "FindByRego", "state", st, "rego", rg)
	r, err := l.repo.FindByRego(ctx, st, rg)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExternalServiceResult("registrations", "FindByRego", started, nil, "found", false)
		return domain.VehiclePatch{}, ErrNoResult
	}
	logger.ExternalServiceResult("registrations", "FindByRego", started, err)
	if err != nil {
		return domain.VehiclePatch{}, fmt.Errorf("registration lookup: %w", err)
	}
	return r.Patch(), nil
}
