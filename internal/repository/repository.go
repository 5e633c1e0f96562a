package repository

import (
	"context"
	"time"

	"autograde-backend/internal/domain"
)

// AppraisalRepository archives finalised appraisals.
type AppraisalRepository interface {
	Save(ctx context.Context, rec *domain.AppraisalRecord) error
	GetByID(ctx context.Context, id string) (*domain.AppraisalRecord, error)
	ListByAppraiser(ctx context.Context, appraiserID int32, limit, offset int32) ([]domain.AppraisalRecord, int32, error)
	// PurgeOlderThan deletes records finalised before cutoff and returns how
	// many were removed along with the photo keys they referenced.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, []string, error)
}

type RegistrationRepository interface {
	FindByRego(ctx context.Context, state, rego string) (*domain.Registration, error)
}

type AppraiserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Appraiser, error)
	GetByEmail(ctx context.Context, email string) (*domain.Appraiser, error)
	UpdateDeviceToken(ctx context.Context, id int32, token string) error
}
