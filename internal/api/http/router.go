package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"autograde-backend/internal/security"
	"autograde-backend/internal/service"
	"autograde-backend/internal/storage"
)

// Options carries the dependencies of the REST API.
type Options struct {
	Auth        service.AuthService
	Appraisals  service.AppraisalService
	Enrichments service.EnrichmentService
	Photos      storage.PhotoStorage
	Tokens      security.TokenManager

	// MaxUploadBytes caps photo uploads. Zero means 10 MiB.
	MaxUploadBytes int64
	// LoginPerMinute limits login attempts per client address. Zero means 10.
	LoginPerMinute int
	// LiveSessions reports the session count on /healthz.
	LiveSessions func() int
}

// NewRouter builds the REST API.
func NewRouter(opts Options) *mux.Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.LoginPerMinute <= 0 {
		opts.LoginPerMinute = 10
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)
	r.HandleFunc("/healthz", healthHandler(opts.LiveSessions)).Methods(http.MethodGet)

	auth := &authHandler{auth: opts.Auth}
	limiter := newIPLimiter(opts.LoginPerMinute, opts.LoginPerMinute)
	r.Handle("/api/v1/auth/login", limiter.middleware(http.HandlerFunc(auth.login))).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(opts.Tokens))
	api.HandleFunc("/auth/device", auth.registerDevice).Methods(http.MethodPut)

	a := &appraisalHandler{svc: opts.Appraisals}
	api.HandleFunc("/appraisals", a.start).Methods(http.MethodPost)
	api.HandleFunc("/appraisals", a.list).Methods(http.MethodGet)
	api.HandleFunc("/appraisals/{id}", a.get).Methods(http.MethodGet)
	api.HandleFunc("/appraisals/{id}", a.end).Methods(http.MethodDelete)
	api.HandleFunc("/appraisals/{id}/checklists/{group}/{item}", a.setCondition).Methods(http.MethodPut)
	api.HandleFunc("/appraisals/{id}/diagram/tool", a.selectTool).Methods(http.MethodPut)
	api.HandleFunc("/appraisals/{id}/diagram/markers", a.placeMarker).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/diagram/markers/{markerId}", a.removeMarker).Methods(http.MethodDelete)
	api.HandleFunc("/appraisals/{id}/diagram/clicks", a.click).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/repairs", a.addRepairRow).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/repairs/total", a.repairTotal).Methods(http.MethodGet)
	api.HandleFunc("/appraisals/{id}/repairs/{index:[0-9]+}", a.updateRepairRow).Methods(http.MethodPut)
	api.HandleFunc("/appraisals/{id}/finalize", a.finalize).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/{section}/{field}", a.setField).Methods(http.MethodPut)

	e := &enrichmentHandler{svc: opts.Enrichments, appraisals: opts.Appraisals, maxUpload: opts.MaxUploadBytes}
	api.HandleFunc("/appraisals/{id}/enrichments/image", e.image).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/enrichments/vin", e.vin).Methods(http.MethodPost)
	api.HandleFunc("/appraisals/{id}/enrichments/registration", e.registration).Methods(http.MethodPost)

	api.HandleFunc("/records", a.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", a.getRecord).Methods(http.MethodGet)

	if opts.Photos != nil {
		p := NewPhotoHandler(opts.Photos)
		api.HandleFunc("/photos/{key:.+}", p.HandleDownload).Methods(http.MethodGet)
	}
	return r
}

func healthHandler(live func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if live != nil {
			body["sessions"] = live()
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func appraiserID(r *http.Request) int32 {
	id, _ := AppraiserIDFromContext(r.Context())
	return id
}
