package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/service"
)

type appraisalHandler struct {
	svc service.AppraisalService
}

func (h *appraisalHandler) start(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Start(r.Context(), appraiserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/appraisals/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

func (h *appraisalHandler) list(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.svc.List(r.Context(), appraiserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []service.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appraisals": snaps})
}

func (h *appraisalHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *appraisalHandler) end(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.End(r.Context(), appraiserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type valueRequest struct {
	Value json.RawMessage `json:"value"`
}

func (h *appraisalHandler) setField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req valueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	value, ok := scalarText(req.Value)
	if !ok {
		writeBadRequest(w, r, "value must be a string, number or boolean")
		return
	}
	snap, err := h.svc.SetField(r.Context(), appraiserID(r), vars["id"], vars["section"], vars["field"], value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type conditionRequest struct {
	Condition domain.Condition `json:"condition"`
}

func (h *appraisalHandler) setCondition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req conditionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	snap, err := h.svc.SetCondition(r.Context(), appraiserID(r), vars["id"], domain.ChecklistGroup(vars["group"]), vars["item"], req.Condition)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type toolRequest struct {
	Type domain.DamageType `json:"type"`
}

func (h *appraisalHandler) selectTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	snap, err := h.svc.SelectTool(r.Context(), appraiserID(r), mux.Vars(r)["id"], req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type pointRequest struct {
	ScreenX float64       `json:"screenX"`
	ScreenY float64       `json:"screenY"`
	Bounds  domain.Bounds `json:"bounds"`
}

type markerResponse struct {
	Appraisal *service.Snapshot    `json:"appraisal"`
	Marker    *domain.DamageMarker `json:"marker"`
}

func (h *appraisalHandler) placeMarker(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	snap, m, err := h.svc.PlaceMarker(r.Context(), appraiserID(r), mux.Vars(r)["id"], req.ScreenX, req.ScreenY, req.Bounds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, markerResponse{Appraisal: snap, Marker: &m})
}

type clickResponse struct {
	Appraisal *service.Snapshot `json:"appraisal"`
	*service.ClickResult
}

func (h *appraisalHandler) click(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	snap, res, err := h.svc.Click(r.Context(), appraiserID(r), mux.Vars(r)["id"], req.ScreenX, req.ScreenY, req.Bounds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{Appraisal: snap, ClickResult: res})
}

func (h *appraisalHandler) removeMarker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := h.svc.RemoveMarker(r.Context(), appraiserID(r), vars["id"], vars["markerId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *appraisalHandler) addRepairRow(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AddRepairRow(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

type repairRequest struct {
	Field domain.RepairField `json:"field"`
	Value json.RawMessage    `json:"value"`
}

func (h *appraisalHandler) updateRepairRow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeBadRequest(w, r, "index must be a number")
		return
	}
	var req repairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	value, ok := scalarText(req.Value)
	if !ok {
		writeBadRequest(w, r, "value must be a string or number")
		return
	}
	snap, err := h.svc.UpdateRepairRow(r.Context(), appraiserID(r), vars["id"], index, req.Field, value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *appraisalHandler) repairTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.RepairTotal(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      total,
		"total_text": domain.FormatMoney(total),
	})
}

func (h *appraisalHandler) finalize(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Finalize(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/records/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (h *appraisalHandler) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetRecord(r.Context(), appraiserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type recordsResponse struct {
	Records  []domain.AppraisalRecord `json:"records"`
	Total    int32                    `json:"total"`
	Page     int32                    `json:"page"`
	PageSize int32                    `json:"page_size"`
}

func (h *appraisalHandler) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt32(q.Get("page"), 1)
	pageSize := queryInt32(q.Get("page_size"), 20)
	recs, total, err := h.svc.ListRecords(r.Context(), appraiserID(r), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.AppraisalRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: recs, Total: total, Page: page, PageSize: pageSize})
}

func queryInt32(s string, def int32) int32 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}
