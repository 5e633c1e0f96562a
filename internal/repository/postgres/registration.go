package postgres

import (
	"context"
	"database/sql"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
)

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) repository.RegistrationRepository {
	return &registrationRepository{db: db}
}

// FindByRego returns sql.ErrNoRows when the plate is not registered in state.
func (r *registrationRepository) FindByRego(ctx context.Context, state, rego string) (*domain.Registration, error) {
	reg := &domain.Registration{}
	query := `SELECT state, rego, COALESCE(make, ''), COALESCE(model, ''), COALESCE(year, ''), COALESCE(trim, ''),
	                 COALESCE(colour, ''), COALESCE(vin, ''), COALESCE(engine_no, ''), COALESCE(compliance_date, '')
	          FROM registrations WHERE state = $1 AND rego = $2`
	logger.DatabaseCall("SELECT", "registrations", "state", state, "rego", rego)
	err := r.db.QueryRowContext(ctx, query, state, rego).Scan(
		&reg.State, &reg.Rego, &reg.Make, &reg.Model, &reg.Year, &reg.Trim,
		&reg.Colour, &reg.VIN, &reg.EngineNo, &reg.ComplianceDate,
	)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "state", state, "rego", rego)
		return nil, err
	}
	logger.DatabaseResult("SELECT", 1, nil, "state", state, "rego", rego)
	return reg, nil
}
