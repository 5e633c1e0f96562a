package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/storage"
)

// Snapshot is a read-only copy of a session plus derived values.
type Snapshot struct {
	ID              string                         `json:"id"`
	AppraiserID     int32                          `json:"appraiser_id"`
	State           domain.AppraisalState          `json:"state"`
	RepairTotal     float64                        `json:"repair_total"`
	RepairTotalText string                         `json:"repair_total_text"`
	SelectedTool    domain.DamageType              `json:"selected_tool"`
	InFlight        map[domain.EnrichmentKind]bool `json:"in_flight"`
	Notices         []domain.Notice                `json:"notices"`
	Photos          []string                       `json:"photos"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// ClickResult reports which of place or remove a diagram click performed.
type ClickResult struct {
	Placed  *domain.DamageMarker `json:"placed,omitempty"`
	Removed *domain.DamageMarker `json:"removed,omitempty"`
}

// session owns one AppraisalState. Every read and transition holds mu.
type session struct {
	mu          sync.Mutex
	id          string
	appraiserID int32
	state       domain.AppraisalState
	tool        domain.DamageType
	notices     []domain.Notice
	photoKeys   []string
	createdAt   time.Time
	touchedAt   time.Time
	ended       bool

	// seq orders enrichment requests and manual vehicle edits. fieldSeq
	// records, per vehicle field, the seq of whatever last wrote it.
	seq      uint64
	fieldSeq map[string]uint64
	gens     map[domain.EnrichmentKind]uint64
	flights  map[domain.EnrichmentKind]*Flight
}

func newSession(id string, appraiserID int32, state domain.AppraisalState, now time.Time) *session {
	return &session{
		id:          id,
		appraiserID: appraiserID,
		state:       state,
		tool:        domain.DamageScratch,
		createdAt:   now,
		touchedAt:   now,
		fieldSeq:    make(map[string]uint64),
		gens:        make(map[domain.EnrichmentKind]uint64),
		flights:     make(map[domain.EnrichmentKind]*Flight),
	}
}

// nextSeq must be called with mu held.
func (s *session) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// noteVehicleEdit marks a manual edit of field so older enrichment
// responses cannot overwrite it. mu must be held.
func (s *session) noteVehicleEdit(field string) {
	s.fieldSeq[field] = s.nextSeq()
}

// addNotice keeps at most max notices, dropping the oldest. mu must be held.
func (s *session) addNotice(n domain.Notice, max int) {
	s.notices = append(s.notices, n)
	if max > 0 && len(s.notices) > max {
		s.notices = append([]domain.Notice(nil), s.notices[len(s.notices)-max:]...)
	}
}

// cancelFlights aborts every running enrichment. mu must be held.
func (s *session) cancelFlights() {
	for kind, f := range s.flights {
		f.cancel()
		delete(s.flights, kind)
	}
}

// snapshot must be called with mu held.
func (s *session) snapshot(photos storage.PhotoStorage) *Snapshot {
	inFlight := make(map[domain.EnrichmentKind]bool, len(domain.EnrichmentKinds))
	for _, k := range domain.EnrichmentKinds {
		inFlight[k] = s.flights[k] != nil
	}
	total := s.state.RepairTotal()
	snap := &Snapshot{
		ID:              s.id,
		AppraiserID:     s.appraiserID,
		State:           s.state.Clone(),
		RepairTotal:     total,
		RepairTotalText: domain.FormatMoney(total),
		SelectedTool:    s.tool,
		InFlight:        inFlight,
		Notices:         append([]domain.Notice{}, s.notices...),
		Photos:          make([]string, 0, len(s.photoKeys)),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.touchedAt,
	}
	for _, k := range s.photoKeys {
		if photos != nil {
			snap.Photos = append(snap.Photos, photos.DownloadURL(k))
		} else {
			snap.Photos = append(snap.Photos, k)
		}
	}
	return snap
}

// SessionStore holds the live sessions of this process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

func (st *SessionStore) add(s *session) {
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
}

// acquire returns the session locked. The caller must unlock it.
func (st *SessionStore) acquire(appraiserID int32, id string) (*session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if s.appraiserID != appraiserID {
		s.mu.Unlock()
		return nil, ErrForbidden
	}
	return s, nil
}

func (st *SessionStore) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *SessionStore) byAppraiser(appraiserID int32) []*session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []*session
	for _, s := range st.sessions {
		if s.appraiserID == appraiserID {
			out = append(out, s)
		}
	}
	return out
}

// sweep ends sessions untouched since cutoff and returns how many it ended
// along with their photo keys.
func (st *SessionStore) sweep(cutoff time.Time) (int, []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	var photos []string
	for id, s := range st.sessions {
		s.mu.Lock()
		if s.touchedAt.Before(cutoff) {
			s.ended = true
			s.cancelFlights()
			photos = append(photos, s.photoKeys...)
			delete(st.sessions, id)
			n++
		}
		s.mu.Unlock()
	}
	return n, photos
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func sortSnapshots(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
}

// Flight is one running enrichment request.
type Flight struct {
	Kind       domain.EnrichmentKind `json:"kind"`
	Generation uint64                `json:"generation"`
	Sequence   uint64                `json:"sequence"`
	StartedAt  time.Time             `json:"started_at"`
	// CheckDigitMismatch is set on VIN flights whose 9th character is not
	// the North American check digit.
	CheckDigitMismatch bool `json:"check_digit_mismatch,omitempty"`

	cancel  context.CancelFunc
	done    chan struct{}
	outcome FlightOutcome
}

// FlightOutcome describes how a flight settled.
type FlightOutcome struct {
	// Applied lists the vehicle fields written by this flight.
	Applied []string `json:"applied"`
	// Skipped lists fields withheld because a newer edit owns them.
	Skipped []string `json:"skipped,omitempty"`
	// Superseded is set when a newer request of the same kind replaced it
	// or the session ended first.
	Superseded bool           `json:"superseded"`
	Notice     *domain.Notice `json:"notice,omitempty"`
}

// Done is closed once the flight has settled.
func (f *Flight) Done() <-chan struct{} { return f.done }

// Outcome is valid after Done is closed.
func (f *Flight) Outcome() FlightOutcome { return f.outcome }
