package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"autograde-backend/internal/service"
)

type enrichmentHandler struct {
	svc        service.EnrichmentService
	appraisals service.AppraisalService
	maxUpload  int64
}

type flightResponse struct {
	Flight    *service.Flight        `json:"flight"`
	Outcome   *service.FlightOutcome `json:"outcome,omitempty"`
	Appraisal *service.Snapshot      `json:"appraisal,omitempty"`
}

// respondFlight answers 202 immediately, or waits for the flight to settle
// when the client asked for ?wait=true.
func (h *enrichmentHandler) respondFlight(w http.ResponseWriter, r *http.Request, f *service.Flight) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		writeJSON(w, http.StatusAccepted, flightResponse{Flight: f})
		return
	}
	select {
	case <-f.Done():
	case <-r.Context().Done():
		return
	}
	out := f.Outcome()
	resp := flightResponse{Flight: f, Outcome: &out}
	snap, err := h.appraisals.Get(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err == nil {
		resp.Appraisal = snap
	}
	writeJSON(w, http.StatusOK, resp)
}

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// image accepts either a raw image body or a multipart form with a "photo"
// file.
func (h *enrichmentHandler) image(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var photo []byte
	var err error
	switch {
	case mediaType == "multipart/form-data":
		photo, err = h.readMultipart(r)
	case acceptedImageTypes[mediaType]:
		photo, err = io.ReadAll(r.Body)
	default:
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody{Error: "Invalid content type", RequestID: RequestIDFromContext(r.Context())})
		return
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "photo too large", RequestID: RequestIDFromContext(r.Context())})
			return
		}
		writeBadRequest(w, r, "could not read photo")
		return
	}
	if len(photo) == 0 {
		writeBadRequest(w, r, "empty photo")
		return
	}

	f, err := h.svc.TriggerImage(r.Context(), appraiserID(r), mux.Vars(r)["id"], photo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondFlight(w, r, f)
}

func (h *enrichmentHandler) readMultipart(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

type vinRequest struct {
	VIN string `json:"vin"`
}

func (h *enrichmentHandler) vin(w http.ResponseWriter, r *http.Request) {
	var req vinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	f, err := h.svc.TriggerVIN(r.Context(), appraiserID(r), mux.Vars(r)["id"], req.VIN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondFlight(w, r, f)
}

type registrationRequest struct {
	State string `json:"state"`
	Rego  string `json:"rego"`
}

func (h *enrichmentHandler) registration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	f, err := h.svc.TriggerRegistration(r.Context(), appraiserID(r), mux.Vars(r)["id"], req.State, req.Rego)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondFlight(w, r, f)
}
