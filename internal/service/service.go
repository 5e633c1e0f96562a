package service

import (
	"context"
	"errors"
	"time"

	"autograde-backend/internal/domain"
)

var (
	ErrSessionNotFound     = errors.New("appraisal session not found")
	ErrForbidden           = errors.New("session belongs to another appraiser")
	ErrRecordNotFound      = errors.New("appraisal record not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrProviderUnavailable = errors.New("enrichment provider not configured")
	// ErrNoIdentifier is returned when a VIN decode is requested without a
	// VIN and the vehicle has no chassis number yet.
	ErrNoIdentifier = errors.New("no VIN to decode")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RegisterDevice(ctx context.Context, appraiserID int32, token string) error
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Appraiser   *domain.Appraiser
}

type AppraisalService interface {
	Start(ctx context.Context, appraiserID int32) (*Snapshot, error)
	Get(ctx context.Context, appraiserID int32, id string) (*Snapshot, error)
	List(ctx context.Context, appraiserID int32) ([]Snapshot, error)
	End(ctx context.Context, appraiserID int32, id string) error

	SetField(ctx context.Context, appraiserID int32, id, section, field, value string) (*Snapshot, error)
	SetCondition(ctx context.Context, appraiserID int32, id string, group domain.ChecklistGroup, item string, c domain.Condition) (*Snapshot, error)

	SelectTool(ctx context.Context, appraiserID int32, id string, t domain.DamageType) (*Snapshot, error)
	PlaceMarker(ctx context.Context, appraiserID int32, id string, screenX, screenY float64, b domain.Bounds) (*Snapshot, domain.DamageMarker, error)
	Click(ctx context.Context, appraiserID int32, id string, screenX, screenY float64, b domain.Bounds) (*Snapshot, *ClickResult, error)
	RemoveMarker(ctx context.Context, appraiserID int32, id, markerID string) (*Snapshot, error)

	AddRepairRow(ctx context.Context, appraiserID int32, id string) (*Snapshot, error)
	UpdateRepairRow(ctx context.Context, appraiserID int32, id string, index int, field domain.RepairField, value string) (*Snapshot, error)
	RepairTotal(ctx context.Context, appraiserID int32, id string) (float64, error)

	Finalize(ctx context.Context, appraiserID int32, id string) (*domain.AppraisalRecord, error)
	GetRecord(ctx context.Context, appraiserID int32, recordID string) (*domain.AppraisalRecord, error)
	ListRecords(ctx context.Context, appraiserID int32, page, pageSize int32) ([]domain.AppraisalRecord, int32, error)

	SweepIdleSessions(ctx context.Context) (int, error)
	PurgeExpiredRecords(ctx context.Context, retention time.Duration) (int64, error)
}

type EnrichmentService interface {
	TriggerImage(ctx context.Context, appraiserID int32, id string, photo []byte) (*Flight, error)
	TriggerVIN(ctx context.Context, appraiserID int32, id, vin string) (*Flight, error)
	TriggerRegistration(ctx context.Context, appraiserID int32, id, state, rego string) (*Flight, error)
}

// ReportMailer delivers the finalised appraisal to the customer.
type ReportMailer interface {
	SendReport(ctx context.Context, rec *domain.AppraisalRecord) error
}

// Notifier pushes enrichment notices to the appraiser's device.
type Notifier interface {
	Notify(ctx context.Context, appraiserID int32, sessionID string, n domain.Notice) error
}
