package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
	"autograde-backend/internal/storage"
)

// AppraisalOptions tunes session lifetime.
type AppraisalOptions struct {
	IdleTTL time.Duration
	Now     func() time.Time
	NewID   func() string
}

type appraisalService struct {
	store   *SessionStore
	repo    repository.AppraisalRepository
	photos  storage.PhotoStorage
	mailer  ReportMailer
	idleTTL time.Duration
	now     func() time.Time
	newID   func() string
}

func NewAppraisalService(store *SessionStore, repo repository.AppraisalRepository, photos storage.PhotoStorage, mailer ReportMailer, opts AppraisalOptions) AppraisalService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	return &appraisalService{
		store:   store,
		repo:    repo,
		photos:  photos,
		mailer:  mailer,
		idleTTL: opts.IdleTTL,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

func (s *appraisalService) Start(ctx context.Context, appraiserID int32) (*Snapshot, error) {
	now := s.now()
	sess := newSession(s.newID(), appraiserID, domain.NewAppraisalState(now, s.newID), now)
	s.store.add(sess)
	logger.Info("Appraisal session started", "session_id", sess.id, "appraiser_id", appraiserID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(s.photos), nil
}

func (s *appraisalService) Get(ctx context.Context, appraiserID int32, id string) (*Snapshot, error) {
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.snapshot(s.photos), nil
}

func (s *appraisalService) List(ctx context.Context, appraiserID int32) ([]Snapshot, error) {
	var snaps []Snapshot
	for _, sess := range s.store.byAppraiser(appraiserID) {
		sess.mu.Lock()
		if !sess.ended {
			snaps = append(snaps, *sess.snapshot(s.photos))
		}
		sess.mu.Unlock()
	}
	sortSnapshots(snaps)
	return snaps, nil
}

func (s *appraisalService) End(ctx context.Context, appraiserID int32, id string) error {
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return err
	}
	sess.ended = true
	sess.cancelFlights()
	photos := sess.photoKeys
	sess.mu.Unlock()

	s.store.remove(id)
	s.deletePhotos(ctx, photos)
	logger.Info("Appraisal session ended", "session_id", id)
	return nil
}

// deletePhotos removes stored photos nothing references any more. Failures
// are logged and left for a later purge.
func (s *appraisalService) deletePhotos(ctx context.Context, keys []string) {
	if s.photos == nil {
		return
	}
	for _, key := range keys {
		if err := s.photos.DeleteFile(ctx, key); err != nil {
			logger.Warn("Failed to delete photo", "key", key, "error", err)
		}
	}
}

// mutate runs fn on the locked session and returns the resulting snapshot.
// State is only replaced when fn succeeds.
func (s *appraisalService) mutate(appraiserID int32, id string, fn func(sess *session) error) (*Snapshot, error) {
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.touchedAt = s.now()
	return sess.snapshot(s.photos), nil
}

func (s *appraisalService) SetField(ctx context.Context, appraiserID int32, id, section, field, value string) (*Snapshot, error) {
	return s.mutate(appraiserID, id, func(sess *session) error {
		next, err := sess.state.SetField(section, field, value)
		if err != nil {
			return err
		}
		sess.state = next
		if section == domain.SectionVehicle {
			sess.noteVehicleEdit(field)
		}
		return nil
	})
}

func (s *appraisalService) SetCondition(ctx context.Context, appraiserID int32, id string, group domain.ChecklistGroup, item string, c domain.Condition) (*Snapshot, error) {
	return s.mutate(appraiserID, id, func(sess *session) error {
		next, err := sess.state.SetCondition(group, item, c)
		if err != nil {
			return err
		}
		sess.state = next
		return nil
	})
}

func (s *appraisalService) SelectTool(ctx context.Context, appraiserID int32, id string, t domain.DamageType) (*Snapshot, error) {
	if !t.Valid() {
		return nil, domain.NewValidationError("type", string(t), domain.ErrInvalidDamageType)
	}
	return s.mutate(appraiserID, id, func(sess *session) error {
		sess.tool = t
		return nil
	})
}

func (s *appraisalService) PlaceMarker(ctx context.Context, appraiserID int32, id string, screenX, screenY float64, b domain.Bounds) (*Snapshot, domain.DamageMarker, error) {
	var placed domain.DamageMarker
	snap, err := s.mutate(appraiserID, id, func(sess *session) error {
		next, m, err := sess.state.PlaceMarker(s.newID(), sess.tool, screenX, screenY, b)
		if err != nil {
			return err
		}
		sess.state = next
		placed = m
		return nil
	})
	return snap, placed, err
}

// Click removes the topmost marker under the point, or places a new marker
// of the selected type when nothing is hit.
func (s *appraisalService) Click(ctx context.Context, appraiserID int32, id string, screenX, screenY float64, b domain.Bounds) (*Snapshot, *ClickResult, error) {
	res := &ClickResult{}
	snap, err := s.mutate(appraiserID, id, func(sess *session) error {
		x, y, err := domain.ToVirtual(screenX, screenY, b)
		if err != nil {
			return err
		}
		if hit, ok := domain.HitTest(sess.state.DamageMarkers, x, y); ok {
			sess.state, _ = sess.state.RemoveMarker(hit.ID)
			res.Removed = &hit
			return nil
		}
		next, m, err := sess.state.PlaceMarker(s.newID(), sess.tool, screenX, screenY, b)
		if err != nil {
			return err
		}
		sess.state = next
		res.Placed = &m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snap, res, nil
}

func (s *appraisalService) RemoveMarker(ctx context.Context, appraiserID int32, id, markerID string) (*Snapshot, error) {
	return s.mutate(appraiserID, id, func(sess *session) error {
		sess.state, _ = sess.state.RemoveMarker(markerID)
		return nil
	})
}

func (s *appraisalService) AddRepairRow(ctx context.Context, appraiserID int32, id string) (*Snapshot, error) {
	return s.mutate(appraiserID, id, func(sess *session) error {
		sess.state = sess.state.AddRepairRow(s.newID())
		return nil
	})
}

func (s *appraisalService) UpdateRepairRow(ctx context.Context, appraiserID int32, id string, index int, field domain.RepairField, value string) (*Snapshot, error) {
	return s.mutate(appraiserID, id, func(sess *session) error {
		next, err := sess.state.UpdateRepairRow(index, field, value)
		if err != nil {
			return err
		}
		sess.state = next
		return nil
	})
}

func (s *appraisalService) RepairTotal(ctx context.Context, appraiserID int32, id string) (float64, error) {
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return 0, err
	}
	defer sess.mu.Unlock()
	return sess.state.RepairTotal(), nil
}

// Finalize archives the session and ends it. The report email is best
// effort: a delivery failure is logged and the record is still returned.
func (s *appraisalService) Finalize(ctx context.Context, appraiserID int32, id string) (*domain.AppraisalRecord, error) {
	logger.EnterMethod("appraisalService.Finalize", "sessionID", id, "appraiserID", appraiserID)

	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		logger.ExitMethodWithError("appraisalService.Finalize", err, "sessionID", id)
		return nil, err
	}
	state := sess.state.Clone()
	rec := &domain.AppraisalRecord{
		ID:          s.newID(),
		SessionID:   sess.id,
		AppraiserID: sess.appraiserID,
		State:       state,
		RepairTotal: state.RepairTotal(),
		PhotoKeys:   append([]string{}, sess.photoKeys...),
		FinalizedAt: s.now().UTC(),
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		sess.mu.Unlock()
		logger.ExitMethodWithError("appraisalService.Finalize", err, "sessionID", id)
		return nil, fmt.Errorf("save appraisal: %w", err)
	}
	sess.ended = true
	sess.cancelFlights()
	sess.mu.Unlock()
	s.store.remove(id)

	if s.mailer != nil && rec.State.Customer.Email != "" {
		if err := s.mailer.SendReport(ctx, rec); err != nil {
			logger.Warn("Failed to send appraisal report", "appraisalID", rec.ID, "error", err)
		}
	}

	logger.ExitMethod("appraisalService.Finalize", "appraisalID", rec.ID)
	return rec, nil
}

func (s *appraisalService) GetRecord(ctx context.Context, appraiserID int32, recordID string) (*domain.AppraisalRecord, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.AppraiserID != appraiserID {
		return nil, ErrForbidden
	}
	return rec, nil
}

func (s *appraisalService) ListRecords(ctx context.Context, appraiserID int32, page, pageSize int32) ([]domain.AppraisalRecord, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	// Pages past the addressable range come back empty.
	offset := int64(page-1) * int64(pageSize)
	if offset > math.MaxInt32 {
		offset = math.MaxInt32
	}
	return s.repo.ListByAppraiser(ctx, appraiserID, pageSize, int32(offset))
}

func (s *appraisalService) SweepIdleSessions(ctx context.Context) (int, error) {
	n, photos := s.store.sweep(s.now().Add(-s.idleTTL))
	s.deletePhotos(ctx, photos)
	if n > 0 {
		logger.Info("Swept idle appraisal sessions", "count", n, "idle_ttl", s.idleTTL)
	}
	return n, nil
}

func (s *appraisalService) PurgeExpiredRecords(ctx context.Context, retention time.Duration) (int64, error) {
	n, photos, err := s.repo.PurgeOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.deletePhotos(ctx, photos)
	return n, nil
}
