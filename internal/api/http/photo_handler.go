package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"autograde-backend/internal/logger"
	"autograde-backend/internal/service"
	"autograde-backend/internal/storage"
)

// PhotoHandler serves stored session photos.
type PhotoHandler struct {
	photos storage.PhotoStorage
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photos storage.PhotoStorage) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// HandleDownload streams the photo stored under the {key} route variable.
func (h *PhotoHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" {
		writeBadRequest(w, r, "Missing key parameter")
		return
	}

	if !storage.OwnedBy(key, appraiserID(r)) {
		writeError(w, r, service.ErrForbidden)
		return
	}

	exists, size, err := h.photos.FileExists(r.Context(), key)
	if err != nil && !errors.Is(err, storage.ErrInvalidKey) {
		writeError(w, r, err)
		return
	}
	if !exists {
		writeError(w, r, storage.ErrNotFound)
		return
	}

	file, err := h.photos.ReadFile(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, r, storage.ErrNotFound)
			return
		}
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream photo", "key", key, "error", err)
	}
}
