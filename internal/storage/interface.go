package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNotFound   = errors.New("photo not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// PhotoStorage keeps the processed photos of appraisal sessions. Keys are
// slash separated, e.g. "appraisers/<id>/sessions/<id>/<photo>.jpg".
type PhotoStorage interface {
	// SaveFile writes the content under key, replacing any previous file.
	SaveFile(ctx context.Context, key string, reader io.Reader) error

	// ReadFile opens a file for reading. Callers close the reader.
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage
	DeleteFile(ctx context.Context, key string) error

	// DownloadURL returns the URL the photo is served from.
	DownloadURL(key string) string
}

// SessionPhotoKey is the key of a photo taken during a session. Keys carry
// the appraiser so downloads can be checked against the caller.
func SessionPhotoKey(appraiserID int32, sessionID, name string) string {
	return fmt.Sprintf("%s%s/%s.jpg", sessionPrefix(appraiserID), sessionID, name)
}

// OwnedBy reports whether key belongs to the appraiser's sessions.
func OwnedBy(key string, appraiserID int32) bool {
	return strings.HasPrefix(key, sessionPrefix(appraiserID))
}

func sessionPrefix(appraiserID int32) string {
	return fmt.Sprintf("appraisers/%d/sessions/", appraiserID)
}
