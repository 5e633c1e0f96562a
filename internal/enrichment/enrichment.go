// Package enrichment holds the external sources that propose vehicle
// details: photo analysis, VIN decoding and registration lookups.
package enrichment

import (
	"context"
	"errors"

	"autograde-backend/internal/domain"
)

var (
	// ErrNoResult means the source answered but had nothing to propose.
	ErrNoResult = errors.New("no result")
	// ErrUnsupportedImage is returned for uploads that cannot be decoded.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// ImageAnalyzer reads vehicle attributes off a JPEG photo.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, jpeg []byte) (domain.VehiclePatch, error)
}

// IdentifierDecoder decodes a normalised VIN.
type IdentifierDecoder interface {
	DecodeVIN(ctx context.Context, vin string) (domain.VehiclePatch, error)
}

// RegistrationLookup resolves a plate within a state.
type RegistrationLookup interface {
	Lookup(ctx context.Context, state, rego string) (domain.VehiclePatch, error)
}
