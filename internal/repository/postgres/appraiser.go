package postgres

import (
	"context"
	"database/sql"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/repository"
)

type appraiserRepository struct {
	db *sql.DB
}

func NewAppraiserRepository(db *sql.DB) repository.AppraiserRepository {
	return &appraiserRepository{db: db}
}

func (r *appraiserRepository) GetByID(ctx context.Context, id int32) (*domain.Appraiser, error) {
	a := &domain.Appraiser{}
	query := `SELECT id, email, name, password_hash, COALESCE(device_token, ''), created_on FROM appraisers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.DeviceToken, &a.CreatedOn)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appraiserRepository) GetByEmail(ctx context.Context, email string) (*domain.Appraiser, error) {
	a := &domain.Appraiser{}
	query := `SELECT id, email, name, password_hash, COALESCE(device_token, ''), created_on FROM appraisers WHERE LOWER(email) = LOWER($1)`
	err := r.db.QueryRowContext(ctx, query, email).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.DeviceToken, &a.CreatedOn)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appraiserRepository) UpdateDeviceToken(ctx context.Context, id int32, token string) error {
	query := `UPDATE appraisers SET device_token = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, token, id)
	return err
}
