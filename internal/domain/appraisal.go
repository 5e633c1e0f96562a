package domain

import "time"

type GeneralRating string

const (
	RatingUnset     GeneralRating = ""
	RatingExcellent GeneralRating = "Excellent"
	RatingGood      GeneralRating = "Good"
	RatingAverage   GeneralRating = "Average"
	RatingPoor      GeneralRating = "Poor"
)

func (r GeneralRating) Valid() bool {
	switch r {
	case RatingUnset, RatingExcellent, RatingGood, RatingAverage, RatingPoor:
		return true
	}
	return false
}

type Transmission string

const (
	TransmissionUnset  Transmission = ""
	TransmissionAuto   Transmission = "Auto"
	TransmissionManual Transmission = "Manual"
)

func (t Transmission) Valid() bool {
	switch t {
	case TransmissionUnset, TransmissionAuto, TransmissionManual:
		return true
	}
	return false
}

type ServiceRecord string

const (
	ServiceRecordUnset    ServiceRecord = ""
	ServiceRecordComplete ServiceRecord = "Complete"
	ServiceRecordPart     ServiceRecord = "Part"
	ServiceRecordNone     ServiceRecord = "None"
)

func (s ServiceRecord) Valid() bool {
	switch s {
	case ServiceRecordUnset, ServiceRecordComplete, ServiceRecordPart, ServiceRecordNone:
		return true
	}
	return false
}

type TradeType string

const (
	TradeTypeUnset        TradeType = ""
	TradeTypeTrade        TradeType = "Trade"
	TradeTypeRetail       TradeType = "Retail"
	TradeTypeBuyingIn     TradeType = "Buying In"
	TradeTypePartExchange TradeType = "Part Exchange"
)

func (t TradeType) Valid() bool {
	switch t {
	case TradeTypeUnset, TradeTypeTrade, TradeTypeRetail, TradeTypeBuyingIn, TradeTypePartExchange:
		return true
	}
	return false
}

type GeneralAppearance struct {
	Rating   GeneralRating `json:"rating"`
	Comments string        `json:"comments"`
}

type MechanicalExtras struct {
	Gearbox       Transmission  `json:"gearbox"`
	Other         string        `json:"other"`
	RoadTest      string        `json:"roadTest"`
	ServiceRecord ServiceRecord `json:"serviceRecord"`
}

type SignOff struct {
	Date           string    `json:"date"`
	Signed         string    `json:"signed"`
	Type           TradeType `json:"type"`
	AllowancePrice Amount    `json:"allowancePrice"`
}

// AppraisalState is the whole form. Transitions return a new value and never
// share slices or maps with the receiver.
type AppraisalState struct {
	Customer          CustomerDetails   `json:"customer"`
	Vehicle           VehicleDetails    `json:"vehicle"`
	DamageMarkers     []DamageMarker    `json:"damageMarkers"`
	GeneralAppearance GeneralAppearance `json:"generalAppearance"`
	Interior          ChecklistSet      `json:"interior"`
	Mechanical        ChecklistSet      `json:"mechanical"`
	MechanicalExtras  MechanicalExtras  `json:"mechanicalExtras"`
	Repairs           []RepairItem      `json:"repairs"`
	SignOff           SignOff           `json:"signOff"`
}

const dateLayout = "2006-01-02"

// InitialRepairRows is the number of blank repair rows on a new form.
const InitialRepairRows = 3

// NewAppraisalState builds the blank form for a session opened at now.
// newID supplies repair row ids.
func NewAppraisalState(now time.Time, newID func() string) AppraisalState {
	today := now.Format(dateLayout)
	repairs := make([]RepairItem, 0, InitialRepairRows)
	for i := 0; i < InitialRepairRows; i++ {
		repairs = AddRepairRow(repairs, newID())
	}
	return AppraisalState{
		Vehicle:       VehicleDetails{Date: today},
		DamageMarkers: []DamageMarker{},
		Interior:      NewChecklistSet(InteriorItems),
		Mechanical:    NewChecklistSet(MechanicalItems),
		Repairs:       repairs,
		SignOff: SignOff{
			Date:           today,
			AllowancePrice: AmountOf(0),
		},
	}
}

// Clone returns a deep copy.
func (s AppraisalState) Clone() AppraisalState {
	next := s
	next.DamageMarkers = append(make([]DamageMarker, 0, len(s.DamageMarkers)), s.DamageMarkers...)
	next.Repairs = append(make([]RepairItem, 0, len(s.Repairs)), s.Repairs...)
	next.Interior = s.Interior.clone()
	next.Mechanical = s.Mechanical.clone()
	return next
}

// RepairTotal is the derived reconditioning total.
func (s AppraisalState) RepairTotal() float64 {
	return RepairTotal(s.Repairs)
}

// Form sections addressable by SetField.
const (
	SectionCustomer          = "customer"
	SectionVehicle           = "vehicle"
	SectionGeneralAppearance = "general-appearance"
	SectionMechanicalExtras  = "mechanical-extras"
	SectionSignOff           = "sign-off"
)

// SetField replaces a single scalar leaf of the form.
func (s AppraisalState) SetField(section, field, value string) (AppraisalState, error) {
	switch section {
	case SectionCustomer:
		return s.WithCustomerField(field, value)
	case SectionVehicle:
		return s.WithVehicleField(field, value)
	case SectionGeneralAppearance:
		return s.WithGeneralAppearanceField(field, value)
	case SectionMechanicalExtras:
		return s.WithMechanicalExtrasField(field, value)
	case SectionSignOff:
		return s.WithSignOffField(field, value)
	}
	return s, NewValidationError("section", section, ErrUnknownField)
}

func (s AppraisalState) WithCustomerField(field, value string) (AppraisalState, error) {
	c, err := s.Customer.WithField(field, value)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	next.Customer = c
	return next, nil
}

func (s AppraisalState) WithVehicleField(field, value string) (AppraisalState, error) {
	v, err := s.Vehicle.WithField(field, value)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	next.Vehicle = v
	return next, nil
}

// MergeVehicleDetails applies a partial update. Fields absent from p keep
// their current value.
func (s AppraisalState) MergeVehicleDetails(p VehiclePatch) AppraisalState {
	next := s.Clone()
	next.Vehicle = s.Vehicle.Merge(p)
	return next
}

func (s AppraisalState) WithGeneralAppearanceField(field, value string) (AppraisalState, error) {
	g := s.GeneralAppearance
	switch field {
	case "rating":
		r := GeneralRating(value)
		if !r.Valid() {
			return s, NewValidationError("rating", value, ErrInvalidValue)
		}
		g.Rating = r
	case "comments":
		g.Comments = value
	default:
		return s, NewValidationError(SectionGeneralAppearance, field, ErrUnknownField)
	}
	next := s.Clone()
	next.GeneralAppearance = g
	return next, nil
}

func (s AppraisalState) WithMechanicalExtrasField(field, value string) (AppraisalState, error) {
	m := s.MechanicalExtras
	switch field {
	case "gearbox":
		t := Transmission(value)
		if !t.Valid() {
			return s, NewValidationError("gearbox", value, ErrInvalidValue)
		}
		m.Gearbox = t
	case "other":
		m.Other = value
	case "roadTest":
		m.RoadTest = value
	case "serviceRecord":
		r := ServiceRecord(value)
		if !r.Valid() {
			return s, NewValidationError("serviceRecord", value, ErrInvalidValue)
		}
		m.ServiceRecord = r
	default:
		return s, NewValidationError(SectionMechanicalExtras, field, ErrUnknownField)
	}
	next := s.Clone()
	next.MechanicalExtras = m
	return next, nil
}

func (s AppraisalState) WithSignOffField(field, value string) (AppraisalState, error) {
	so := s.SignOff
	switch field {
	case "date":
		so.Date = value
	case "signed":
		so.Signed = value
	case "type":
		t := TradeType(value)
		if !t.Valid() {
			return s, NewValidationError("type", value, ErrInvalidValue)
		}
		so.Type = t
	case "allowancePrice":
		so.AllowancePrice = AmountText(value)
	default:
		return s, NewValidationError(SectionSignOff, field, ErrUnknownField)
	}
	next := s.Clone()
	next.SignOff = so
	return next, nil
}

// SetCondition rates one item of a checklist group.
func (s AppraisalState) SetCondition(group ChecklistGroup, item string, c Condition) (AppraisalState, error) {
	switch group {
	case ChecklistInterior:
		cs, err := s.Interior.With(item, c)
		if err != nil {
			return s, err
		}
		next := s.Clone()
		next.Interior = cs
		return next, nil
	case ChecklistMechanical:
		cs, err := s.Mechanical.With(item, c)
		if err != nil {
			return s, err
		}
		next := s.Clone()
		next.Mechanical = cs
		return next, nil
	}
	return s, NewValidationError("group", string(group), ErrUnknownChecklistGroup)
}

// PlaceMarker appends a marker for a click on the diagram.
func (s AppraisalState) PlaceMarker(id string, t DamageType, screenX, screenY float64, b Bounds) (AppraisalState, DamageMarker, error) {
	markers, m, err := PlaceMarker(s.DamageMarkers, id, t, screenX, screenY, b)
	if err != nil {
		return s, DamageMarker{}, err
	}
	next := s.Clone()
	next.DamageMarkers = markers
	return next, m, nil
}

// RemoveMarker drops the marker id if present.
func (s AppraisalState) RemoveMarker(id string) (AppraisalState, bool) {
	markers, removed := RemoveMarker(s.DamageMarkers, id)
	next := s.Clone()
	next.DamageMarkers = markers
	return next, removed
}

// AddRepairRow appends a blank repair row.
func (s AppraisalState) AddRepairRow(id string) AppraisalState {
	next := s.Clone()
	next.Repairs = AddRepairRow(s.Repairs, id)
	return next
}

// UpdateRepairRow replaces one field of a repair row.
func (s AppraisalState) UpdateRepairRow(index int, field RepairField, value string) (AppraisalState, error) {
	repairs, err := UpdateRepairRow(s.Repairs, index, field, value)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	next.Repairs = repairs
	return next, nil
}
