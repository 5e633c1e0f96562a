package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"autograde-backend/internal/domain"
)

var reportHTML = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": domain.FormatMoney,
}).Parse(`<html><body>
<h2>Vehicle Appraisal</h2>
<p>Dear {{if .State.Customer.Name}}{{.State.Customer.Name}}{{else}}customer{{end}},</p>
<p>Thank you for bringing in your {{.State.Vehicle.Year}} {{.State.Vehicle.Make}} {{.State.Vehicle.Model}}{{with .State.Vehicle.RegNo}} ({{.}}){{end}}.</p>
<table>
<tr><td>Appraised on</td><td>{{.State.SignOff.Date}}</td></tr>
<tr><td>Mileage</td><td>{{.State.Vehicle.Mileage}}</td></tr>
<tr><td>General appearance</td><td>{{.State.GeneralAppearance.Rating}}</td></tr>
<tr><td>Recorded damage</td><td>{{len .State.DamageMarkers}}</td></tr>
<tr><td>Estimated reconditioning</td><td>{{money .RepairTotal}}</td></tr>
{{if .State.SignOff.AllowancePrice.Numeric}}<tr><td>Allowance</td><td>{{money .State.SignOff.AllowancePrice.Value}}</td></tr>{{end}}
</table>
<p>Reference: {{.ID}}</p>
</body></html>`))

// reportSubject is the email subject for a finalised appraisal.
func reportSubject(rec *domain.AppraisalRecord) string {
	v := rec.State.Vehicle
	desc := strings.TrimSpace(strings.Join([]string{v.Year, v.Make, v.Model}, " "))
	if desc == "" {
		desc = "your vehicle"
	}
	return fmt.Sprintf("Trade-in appraisal for %s", desc)
}

func renderReportText(rec *domain.AppraisalRecord) string {
	s := rec.State
	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle Appraisal %s\n\n", rec.ID)
	fmt.Fprintf(&b, "Vehicle: %s %s %s %s\n", s.Vehicle.Year, s.Vehicle.Make, s.Vehicle.Model, s.Vehicle.Trim)
	fmt.Fprintf(&b, "Registration: %s\n", s.Vehicle.RegNo)
	fmt.Fprintf(&b, "Mileage: %s\n", s.Vehicle.Mileage)
	fmt.Fprintf(&b, "General appearance: %s\n", s.GeneralAppearance.Rating)
	fmt.Fprintf(&b, "Recorded damage: %d\n", len(s.DamageMarkers))
	fmt.Fprintf(&b, "Estimated reconditioning: %s\n", domain.FormatMoney(rec.RepairTotal))
	if s.SignOff.AllowancePrice.Numeric() {
		fmt.Fprintf(&b, "Allowance: %s\n", domain.FormatMoney(s.SignOff.AllowancePrice.Value()))
	}
	return b.String()
}

func renderReportHTML(rec *domain.AppraisalRecord) (string, error) {
	var buf bytes.Buffer
	if err := reportHTML.Execute(&buf, rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}
