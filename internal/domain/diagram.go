package domain

import (
	"fmt"
	"math"
)

type DamageType string

const (
	DamageScratch   DamageType = "Scratch"
	DamageStoneChip DamageType = "Stone Chip"
	DamageDent      DamageType = "Dent"
	DamageRust      DamageType = "Rust"
)

// DamageTypes lists the defect tools in selector order.
var DamageTypes = []DamageType{DamageScratch, DamageStoneChip, DamageDent, DamageRust}

func (t DamageType) Valid() bool {
	switch t {
	case DamageScratch, DamageStoneChip, DamageDent, DamageRust:
		return true
	}
	return false
}

// Virtual canvas size. Markers are stored in these units regardless of the
// on-screen size of the diagram.
const (
	CanvasWidth  = 300.0
	CanvasHeight = 200.0
	// MarkerHitRadius is the radius of a marker's clickable zone.
	MarkerHitRadius = 8.0
)

// DamageMarker is a defect placed on the vehicle silhouette.
type DamageMarker struct {
	ID   string     `json:"id"`
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	Type DamageType `json:"type"`
}

// Bounds is the on-screen rectangle of the diagram container.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Bounds) valid() bool {
	return b.Width > 0 && b.Height > 0 &&
		!math.IsInf(b.Width, 0) && !math.IsInf(b.Height, 0) &&
		!math.IsNaN(b.Left) && !math.IsNaN(b.Top)
}

// ToVirtual maps a screen point inside b to virtual canvas coordinates,
// clamped to the canvas.
func ToVirtual(screenX, screenY float64, b Bounds) (float64, float64, error) {
	if !b.valid() {
		return 0, 0, NewValidationError("bounds", fmt.Sprintf("%gx%g", b.Width, b.Height), ErrInvalidBounds)
	}
	if math.IsNaN(screenX) || math.IsNaN(screenY) {
		return 0, 0, NewValidationError("point", fmt.Sprintf("%g,%g", screenX, screenY), ErrInvalidValue)
	}
	x := (screenX - b.Left) / b.Width * CanvasWidth
	y := (screenY - b.Top) / b.Height * CanvasHeight
	return clamp(x, 0, CanvasWidth), clamp(y, 0, CanvasHeight), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PlaceMarker converts a click into a marker of type t and returns a new
// sequence with it appended.
func PlaceMarker(markers []DamageMarker, id string, t DamageType, screenX, screenY float64, b Bounds) ([]DamageMarker, DamageMarker, error) {
	if !t.Valid() {
		return markers, DamageMarker{}, NewValidationError("type", string(t), ErrInvalidDamageType)
	}
	x, y, err := ToVirtual(screenX, screenY, b)
	if err != nil {
		return markers, DamageMarker{}, err
	}
	m := DamageMarker{ID: id, X: x, Y: y, Type: t}
	next := make([]DamageMarker, len(markers), len(markers)+1)
	copy(next, markers)
	return append(next, m), m, nil
}

// RemoveMarker returns a new sequence without the marker id. A missing id is
// not an error; the second of two quick clicks may target a removed marker.
func RemoveMarker(markers []DamageMarker, id string) ([]DamageMarker, bool) {
	next := make([]DamageMarker, 0, len(markers))
	removed := false
	for _, m := range markers {
		if m.ID == id {
			removed = true
			continue
		}
		next = append(next, m)
	}
	return next, removed
}

// HitTest returns the topmost marker whose hit zone contains the virtual
// point. Later markers are drawn above earlier ones.
func HitTest(markers []DamageMarker, x, y float64) (DamageMarker, bool) {
	for i := len(markers) - 1; i >= 0; i-- {
		m := markers[i]
		if math.Hypot(m.X-x, m.Y-y) <= MarkerHitRadius {
			return m, true
		}
	}
	return DamageMarker{}, false
}
