package postgres

import (
	"database/sql"

	"autograde-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.AppraisalRepository
	repository.RegistrationRepository
	repository.AppraiserRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		AppraisalRepository:    NewAppraisalRepository(db),
		RegistrationRepository: NewRegistrationRepository(db),
		AppraiserRepository:    NewAppraiserRepository(db),
	}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}
