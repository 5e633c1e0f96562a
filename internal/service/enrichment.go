package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/enrichment"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/storage"
	"autograde-backend/internal/utils"
)

// EnrichmentOptions configures the enrichment orchestrator.
type EnrichmentOptions struct {
	Timeout      time.Duration
	MaxNotices   int
	ImageMaxDim  int
	ImageQuality int
	Now          func() time.Time
}

type enrichmentService struct {
	store    *SessionStore
	images   enrichment.ImageAnalyzer
	vins     enrichment.IdentifierDecoder
	regos    enrichment.RegistrationLookup
	photos   storage.PhotoStorage
	notifier Notifier
	opts     EnrichmentOptions
}

// NewEnrichmentService wires the providers. A nil provider disables its
// kind; triggering it returns ErrProviderUnavailable.
func NewEnrichmentService(
	store *SessionStore,
	images enrichment.ImageAnalyzer,
	vins enrichment.IdentifierDecoder,
	regos enrichment.RegistrationLookup,
	photos storage.PhotoStorage,
	notifier Notifier,
	opts EnrichmentOptions,
) EnrichmentService {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxNotices <= 0 {
		opts.MaxNotices = 20
	}
	if opts.ImageMaxDim <= 0 {
		opts.ImageMaxDim = 1024
	}
	if opts.ImageQuality <= 0 {
		opts.ImageQuality = 70
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &enrichmentService{
		store:    store,
		images:   images,
		vins:     vins,
		regos:    regos,
		photos:   photos,
		notifier: notifier,
		opts:     opts,
	}
}

type fetchFunc func(ctx context.Context) (domain.VehiclePatch, error)

func (s *enrichmentService) TriggerImage(ctx context.Context, appraiserID int32, id string, photo []byte) (*Flight, error) {
	if s.images == nil {
		return nil, ErrProviderUnavailable
	}
	jpeg, err := enrichment.PreparePhoto(photo, s.opts.ImageMaxDim, s.opts.ImageQuality)
	if err != nil {
		return nil, domain.NewValidationError("photo", fmt.Sprintf("%d bytes", len(photo)), err)
	}

	// Ownership is checked before anything is written to storage.
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Unlock()

	key := storage.SessionPhotoKey(appraiserID, id, uuid.NewString())
	if s.photos != nil {
		if err := s.photos.SaveFile(ctx, key, bytes.NewReader(jpeg)); err != nil {
			return nil, fmt.Errorf("store photo: %w", err)
		}
	}

	f, err := s.launch(appraiserID, id, domain.EnrichmentImage, func(sess *session) {
		if s.photos != nil {
			sess.photoKeys = append(sess.photoKeys, key)
		}
	}, func(ctx context.Context) (domain.VehiclePatch, error) {
		return s.images.AnalyzeImage(ctx, jpeg)
	})
	if err != nil && s.photos != nil {
		// The session ended while the photo was being stored.
		if derr := s.photos.DeleteFile(ctx, key); derr != nil {
			logger.Warn("Failed to delete orphaned photo", "key", key, "error", derr)
		}
	}
	return f, err
}

func (s *enrichmentService) TriggerVIN(ctx context.Context, appraiserID int32, id, vin string) (*Flight, error) {
	if s.vins == nil {
		return nil, ErrProviderUnavailable
	}
	var normalized string
	f, err := s.launchChecked(appraiserID, id, domain.EnrichmentVIN, func(sess *session) error {
		raw := vin
		if raw == "" {
			raw = sess.state.Vehicle.ChassisNo
		}
		if raw == "" {
			return ErrNoIdentifier
		}
		n, err := utils.ValidateVIN(raw)
		if err != nil {
			return err
		}
		normalized = n
		return nil
	}, func(ctx context.Context) (domain.VehiclePatch, error) {
		return s.vins.DecodeVIN(ctx, normalized)
	})
	if err != nil {
		return nil, err
	}
	// vPIC still decodes VINs that fail the North American check digit, which
	// is common for imports, so a mismatch is only reported.
	if !utils.CheckDigitValid(normalized) {
		f.CheckDigitMismatch = true
		logger.WithSession(id).Warn("VIN check digit mismatch", "vin", normalized)
	}
	return f, nil
}

func (s *enrichmentService) TriggerRegistration(ctx context.Context, appraiserID int32, id, state, rego string) (*Flight, error) {
	if s.regos == nil {
		return nil, ErrProviderUnavailable
	}
	state = utils.NormalizeState(state)
	if state == "" {
		return nil, domain.NewValidationError("state", state, domain.ErrInvalidValue)
	}
	var plate string
	return s.launchChecked(appraiserID, id, domain.EnrichmentRegistration, func(sess *session) error {
		plate = utils.NormalizeRego(rego)
		if plate == "" {
			plate = utils.NormalizeRego(sess.state.Vehicle.RegNo)
		}
		if plate == "" {
			return domain.NewValidationError("rego", rego, domain.ErrInvalidValue)
		}
		return nil
	}, func(ctx context.Context) (domain.VehiclePatch, error) {
		return s.regos.Lookup(ctx, state, plate)
	})
}

func (s *enrichmentService) launch(appraiserID int32, id string, kind domain.EnrichmentKind, prepare func(*session), fetch fetchFunc) (*Flight, error) {
	return s.launchChecked(appraiserID, id, kind, func(sess *session) error {
		prepare(sess)
		return nil
	}, fetch)
}

// launchChecked supersedes any running flight of kind and starts a new one.
// prepare runs under the session lock and may veto the request.
func (s *enrichmentService) launchChecked(appraiserID int32, id string, kind domain.EnrichmentKind, prepare func(*session) error, fetch fetchFunc) (*Flight, error) {
	sess, err := s.store.acquire(appraiserID, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if err := prepare(sess); err != nil {
		return nil, err
	}

	if prev := sess.flights[kind]; prev != nil {
		prev.cancel()
	}
	sess.gens[kind]++

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	f := &Flight{
		Kind:       kind,
		Generation: sess.gens[kind],
		Sequence:   sess.nextSeq(),
		StartedAt:  s.opts.Now(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	sess.flights[kind] = f
	sess.touchedAt = f.StartedAt

	logger.WithSession(id).Info("Enrichment started", "kind", kind, "generation", f.Generation, "sequence", f.Sequence)
	go s.run(ctx, sess, f, fetch)
	return f, nil
}

func (s *enrichmentService) run(ctx context.Context, sess *session, f *Flight, fetch fetchFunc) {
	log := logger.WithSession(sess.id)
	defer close(f.done)

	patch, err := s.safeFetch(ctx, fetch)
	f.cancel()

	sess.mu.Lock()
	if sess.ended || sess.gens[f.Kind] != f.Generation {
		sess.mu.Unlock()
		f.outcome = FlightOutcome{Superseded: true}
		log.Debug("Enrichment result discarded", "kind", f.Kind, "generation", f.Generation)
		return
	}
	delete(sess.flights, f.Kind)

	var notice *domain.Notice
	switch {
	case err != nil:
		notice = s.failureNotice(f.Kind, err)
	case patch.IsEmpty():
		notice = s.failureNotice(f.Kind, enrichment.ErrNoResult)
	default:
		applied, skipped := s.apply(sess, f, patch)
		f.outcome.Applied = applied
		f.outcome.Skipped = skipped
		log.Info("Enrichment applied", "kind", f.Kind, "fields", applied, "skipped", skipped)
	}
	if notice != nil {
		sess.addNotice(*notice, s.opts.MaxNotices)
		f.outcome.Notice = notice
	}
	appraiserID := sess.appraiserID
	sess.mu.Unlock()

	if notice != nil {
		log.Warn("Enrichment failed", "kind", f.Kind, "error", err)
		if s.notifier != nil {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if nerr := s.notifier.Notify(nctx, appraiserID, sess.id, *notice); nerr != nil {
				log.Warn("Failed to push notice", "error", nerr)
			}
			cancel()
		}
	}
}

// safeFetch converts a provider panic into an error so the flight settles.
func (s *enrichmentService) safeFetch(ctx context.Context, fetch fetchFunc) (patch domain.VehiclePatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return fetch(ctx)
}

// apply merges the fields of patch that no newer request or manual edit has
// written. mu must be held.
func (s *enrichmentService) apply(sess *session, f *Flight, patch domain.VehiclePatch) (applied, skipped []string) {
	for _, key := range patch.Keys() {
		if sess.fieldSeq[key] > f.Sequence {
			skipped = append(skipped, key)
			continue
		}
		sess.fieldSeq[key] = f.Sequence
		applied = append(applied, key)
	}
	sess.state = sess.state.MergeVehicleDetails(patch.Without(skipped...))
	sess.touchedAt = s.opts.Now()
	return applied, skipped
}

func (s *enrichmentService) failureNotice(kind domain.EnrichmentKind, err error) *domain.Notice {
	n := &domain.Notice{Kind: kind, Level: domain.NoticeError, At: s.opts.Now()}
	switch {
	case errors.Is(err, enrichment.ErrNoResult):
		n.Level = domain.NoticeWarn
		n.Message = noResultMessage(kind)
	case errors.Is(err, context.DeadlineExceeded):
		n.Message = fmt.Sprintf("%s lookup timed out", kindLabel(kind))
	default:
		n.Message = fmt.Sprintf("%s lookup failed", kindLabel(kind))
	}
	return n
}

func noResultMessage(kind domain.EnrichmentKind) string {
	switch kind {
	case domain.EnrichmentImage:
		return "No vehicle details could be read from the photo"
	case domain.EnrichmentVIN:
		return "VIN could not be decoded"
	case domain.EnrichmentRegistration:
		return "Registration not found"
	}
	return "No details found"
}

func kindLabel(kind domain.EnrichmentKind) string {
	switch kind {
	case domain.EnrichmentImage:
		return "Photo analysis"
	case domain.EnrichmentVIN:
		return "VIN decode"
	case domain.EnrichmentRegistration:
		return "Registration"
	}
	return string(kind)
}
