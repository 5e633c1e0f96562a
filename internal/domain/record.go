package domain

import "time"

// AppraisalRecord is a finalised snapshot kept in the archive.
type AppraisalRecord struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	AppraiserID int32          `json:"appraiser_id"`
	State       AppraisalState `json:"state"`
	RepairTotal float64        `json:"repair_total"`
	PhotoKeys   []string       `json:"photo_keys,omitempty"`
	FinalizedAt time.Time      `json:"finalized_at"`
}

// Appraiser is a staff member allowed to run appraisals.
type Appraiser struct {
	ID           int32     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	DeviceToken  string    `json:"-"`
	CreatedOn    time.Time `json:"created_on"`
}

// Registration is a row of the registration register used by rego lookups.
type Registration struct {
	State          string `json:"state"`
	Rego           string `json:"rego"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           string `json:"year"`
	Trim           string `json:"trim"`
	Colour         string `json:"colour"`
	VIN            string `json:"vin"`
	EngineNo       string `json:"engine_no"`
	ComplianceDate string `json:"compliance_date"`
}

// Patch converts the register row into a vehicle update. Empty columns are
// left absent.
func (r Registration) Patch() VehiclePatch {
	var p VehiclePatch
	set := func(name, v string) {
		if v != "" {
			p = p.Set(name, v)
		}
	}
	set(VehicleMake, r.Make)
	set(VehicleModel, r.Model)
	set(VehicleYear, r.Year)
	set(VehicleTrim, r.Trim)
	set(VehicleColour, r.Colour)
	set(VehicleRegNo, r.Rego)
	set(VehicleChassisNo, r.VIN)
	set(VehicleEngineNo, r.EngineNo)
	set(VehicleDate, r.ComplianceDate)
	return p
}
