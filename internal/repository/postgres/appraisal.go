package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"

	"github.com/lib/pq"
)

type appraisalRepository struct {
	db *sql.DB
}

func NewAppraisalRepository(db *sql.DB) repository.AppraisalRepository {
	return &appraisalRepository{db: db}
}

func (r *appraisalRepository) Save(ctx context.Context, rec *domain.AppraisalRecord) error {
	logger.EnterMethod("appraisalRepository.Save", "appraisalID", rec.ID, "sessionID", rec.SessionID)

	state, err := json.Marshal(rec.State)
	if err != nil {
		logger.ExitMethodWithError("appraisalRepository.Save", err, "reason", "failed to marshal state")
		return err
	}

	query := `INSERT INTO appraisals (id, session_id, appraiser_id, state, repair_total, photo_keys, finalized_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	logger.DatabaseCall("INSERT", "appraisals", "appraisalID", rec.ID)

	res, err := r.db.ExecContext(ctx, query, rec.ID, rec.SessionID, rec.AppraiserID, state, rec.RepairTotal, pq.Array(rec.PhotoKeys), rec.FinalizedAt)
	var affected int64
	if err == nil {
		affected, _ = res.RowsAffected()
	}
	logger.DatabaseResult("INSERT", affected, err, "appraisalID", rec.ID)

	if err != nil {
		logger.ExitMethodWithError("appraisalRepository.Save", err, "appraisalID", rec.ID)
		return err
	}
	logger.ExitMethod("appraisalRepository.Save", "appraisalID", rec.ID)
	return nil
}

func (r *appraisalRepository) GetByID(ctx context.Context, id string) (*domain.AppraisalRecord, error) {
	query := `SELECT id, session_id, appraiser_id, state, repair_total, photo_keys, finalized_at FROM appraisals WHERE id = $1`
	rec, err := scanAppraisal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *appraisalRepository) ListByAppraiser(ctx context.Context, appraiserID int32, limit, offset int32) ([]domain.AppraisalRecord, int32, error) {
	query := `SELECT id, session_id, appraiser_id, state, repair_total, photo_keys, finalized_at
	          FROM appraisals WHERE appraiser_id = $1 ORDER BY finalized_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, appraiserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []domain.AppraisalRecord
	for rows.Next() {
		rec, err := scanAppraisal(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM appraisals WHERE appraiser_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, appraiserID).Scan(&count); err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

func (r *appraisalRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	query := `DELETE FROM appraisals WHERE finalized_at < $1 RETURNING photo_keys`
	logger.DatabaseCall("DELETE", "appraisals", "cutoff", cutoff)
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return 0, nil, err
	}
	defer rows.Close()

	var n int64
	var keys []string
	for rows.Next() {
		var k []string
		if err := rows.Scan(pq.Array(&k)); err != nil {
			logger.DatabaseResult("DELETE", n, err)
			return n, keys, err
		}
		keys = append(keys, k...)
		n++
	}
	err = rows.Err()
	logger.DatabaseResult("DELETE", n, err)
	return n, keys, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppraisal(row rowScanner) (*domain.AppraisalRecord, error) {
	var rec domain.AppraisalRecord
	var state []byte
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.AppraiserID, &state, &rec.RepairTotal, pq.Array(&rec.PhotoKeys), &rec.FinalizedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(state, &rec.State); err != nil {
		return nil, err
	}
	return &rec, nil
}
