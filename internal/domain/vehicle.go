package domain

// CustomerDetails is the client profile section.
type CustomerDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Tel     string `json:"tel"`
	Email   string `json:"email"`
}

// VehicleDetails is the vehicle identity section.
type VehicleDetails struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      string `json:"year"`
	Trim      string `json:"trim"`
	Colour    string `json:"colour"`
	RegNo     string `json:"regNo"`
	ChassisNo string `json:"chassisNo"`
	EngineNo  string `json:"engineNo"`
	Mileage   string `json:"mileage"`
	Date      string `json:"date"`
}

// VehiclePatch is a partial update proposed by an enrichment source. Nil
// fields are absent and never overwrite existing values.
type VehiclePatch struct {
	Make      *string `json:"make,omitempty"`
	Model     *string `json:"model,omitempty"`
	Year      *string `json:"year,omitempty"`
	Trim      *string `json:"trim,omitempty"`
	Colour    *string `json:"colour,omitempty"`
	RegNo     *string `json:"regNo,omitempty"`
	ChassisNo *string `json:"chassisNo,omitempty"`
	EngineNo  *string `json:"engineNo,omitempty"`
	Mileage   *string `json:"mileage,omitempty"`
	Date      *string `json:"date,omitempty"`
}

// Vehicle field names, matching the JSON keys.
const (
	VehicleMake      = "make"
	VehicleModel     = "model"
	VehicleYear      = "year"
	VehicleTrim      = "trim"
	VehicleColour    = "colour"
	VehicleRegNo     = "regNo"
	VehicleChassisNo = "chassisNo"
	VehicleEngineNo  = "engineNo"
	VehicleMileage   = "mileage"
	VehicleDate      = "date"
)

// VehicleFields lists every vehicle field in form order.
var VehicleFields = []string{
	VehicleMake, VehicleModel, VehicleYear, VehicleTrim, VehicleColour,
	VehicleRegNo, VehicleChassisNo, VehicleEngineNo, VehicleMileage, VehicleDate,
}

func (v *VehicleDetails) field(name string) *string {
	switch name {
	case VehicleMake:
		return &v.Make
	case VehicleModel:
		return &v.Model
	case VehicleYear:
		return &v.Year
	case VehicleTrim:
		return &v.Trim
	case VehicleColour:
		return &v.Colour
	case VehicleRegNo:
		return &v.RegNo
	case VehicleChassisNo:
		return &v.ChassisNo
	case VehicleEngineNo:
		return &v.EngineNo
	case VehicleMileage:
		return &v.Mileage
	case VehicleDate:
		return &v.Date
	}
	return nil
}

func (p *VehiclePatch) field(name string) **string {
	switch name {
	case VehicleMake:
		return &p.Make
	case VehicleModel:
		return &p.Model
	case VehicleYear:
		return &p.Year
	case VehicleTrim:
		return &p.Trim
	case VehicleColour:
		return &p.Colour
	case VehicleRegNo:
		return &p.RegNo
	case VehicleChassisNo:
		return &p.ChassisNo
	case VehicleEngineNo:
		return &p.EngineNo
	case VehicleMileage:
		return &p.Mileage
	case VehicleDate:
		return &p.Date
	}
	return nil
}

// WithField returns a copy with one named field replaced.
func (v VehicleDetails) WithField(name, value string) (VehicleDetails, error) {
	f := v.field(name)
	if f == nil {
		return v, NewValidationError("vehicle", name, ErrUnknownField)
	}
	*f = value
	return v, nil
}

// Get returns the value of a named field.
func (v VehicleDetails) Get(name string) (string, bool) {
	f := v.field(name)
	if f == nil {
		return "", false
	}
	return *f, true
}

// Merge overwrites only the fields present in p.
func (v VehicleDetails) Merge(p VehiclePatch) VehicleDetails {
	for _, name := range VehicleFields {
		if pv := *p.field(name); pv != nil {
			*v.field(name) = *pv
		}
	}
	return v
}

// Set returns a copy of the patch with name present and set to value.
func (p VehiclePatch) Set(name, value string) VehiclePatch {
	if f := p.field(name); f != nil {
		s := value
		*f = &s
	}
	return p
}

// Without returns a copy of the patch with the named fields made absent.
func (p VehiclePatch) Without(names ...string) VehiclePatch {
	for _, n := range names {
		if f := p.field(n); f != nil {
			*f = nil
		}
	}
	return p
}

// Keys returns the names of the fields present, in form order.
func (p VehiclePatch) Keys() []string {
	var keys []string
	for _, name := range VehicleFields {
		if *p.field(name) != nil {
			keys = append(keys, name)
		}
	}
	return keys
}

// IsEmpty reports whether no field is present.
func (p VehiclePatch) IsEmpty() bool {
	return len(p.Keys()) == 0
}

// Customer field names, matching the JSON keys.
const (
	CustomerName    = "name"
	CustomerAddress = "address"
	CustomerTel     = "tel"
	CustomerEmail   = "email"
)

// WithField returns a copy with one named field replaced.
func (c CustomerDetails) WithField(name, value string) (CustomerDetails, error) {
	switch name {
	case CustomerName:
		c.Name = value
	case CustomerAddress:
		c.Address = value
	case CustomerTel:
		c.Tel = value
	case CustomerEmail:
		c.Email = value
	default:
		return c, NewValidationError("customer", name, ErrUnknownField)
	}
	return c, nil
}
