package domain

import "time"

type EnrichmentKind string

const (
	EnrichmentImage        EnrichmentKind = "image"
	EnrichmentVIN          EnrichmentKind = "vin"
	EnrichmentRegistration EnrichmentKind = "registration"
)

var EnrichmentKinds = []EnrichmentKind{EnrichmentImage, EnrichmentVIN, EnrichmentRegistration}

func (k EnrichmentKind) Valid() bool {
	switch k {
	case EnrichmentImage, EnrichmentVIN, EnrichmentRegistration:
		return true
	}
	return false
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message about an enrichment outcome.
type Notice struct {
	Kind    EnrichmentKind `json:"kind"`
	Level   NoticeLevel    `json:"level"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
}
