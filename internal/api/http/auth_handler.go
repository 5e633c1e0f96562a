package http

import (
	"net/http"
	"time"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/service"
)

type authHandler struct {
	auth service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Appraiser   *domain.Appraiser `json:"appraiser"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
		Appraiser:   res.Appraiser,
	})
}

type deviceRequest struct {
	Token string `json:"token"`
}

// registerDevice stores the FCM token that receives enrichment notices.
func (h *authHandler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, "malformed JSON body")
		return
	}
	if err := h.auth.RegisterDevice(r.Context(), appraiserID(r), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
