package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationRepository_FindByRego(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewRegistrationRepository(db)
	ctx := context.Background()
	cols := []string{"state", "rego", "make", "model", "year", "trim", "colour", "vin", "engine_no", "compliance_date"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE state = \\$1 AND rego = \\$2").
			WithArgs("VIC", "DMH427").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("VIC", "DMH427", "SUBARU", "OUTBACK", "2025", "WAGON", "GREEN", "JF2BT9KL3SG078266", "ZA63989", "2025-06-01"))

		reg, err := repo.FindByRego(ctx, "VIC", "DMH427")
		require.NoError(t, err)
		assert.Equal(t, "OUTBACK", reg.Model)
		assert.Equal(t, "JF2BT9KL3SG078266", reg.VIN)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM registrations").
			WithArgs("NSW", "ZZZ999").
			WillReturnError(sql.ErrNoRows)

		reg, err := repo.FindByRego(ctx, "NSW", "ZZZ999")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, reg)
	})
}

func TestAppraiserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewAppraiserRepository(db)
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appraisers WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("Sam@Dealer.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "device_token", "created_on"}).
			AddRow(3, "sam@dealer.test", "Sam", "hash", "", created))

	a, err := repo.GetByEmail(context.Background(), "Sam@Dealer.test")
	require.NoError(t, err)
	assert.Equal(t, &domain.Appraiser{ID: 3, Email: "sam@dealer.test", Name: "Sam", PasswordHash: "hash", CreatedOn: created}, a)
}

func TestAppraiserRepository_UpdateDeviceToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewAppraiserRepository(db)
	mock.ExpectExec("UPDATE appraisers SET device_token").
		WithArgs("fcm-token", int32(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateDeviceToken(context.Background(), 3, "fcm-token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
