package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a money field as typed into the form. The raw text is kept for
// display; Value coerces it to a number for aggregation.
type Amount struct {
	raw string
}

// AmountOf builds an Amount from a number.
func AmountOf(v float64) Amount {
	return Amount{raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// AmountText builds an Amount from user input, kept verbatim.
func AmountText(s string) Amount {
	return Amount{raw: s}
}

// Raw returns the text as entered.
func (a Amount) Raw() string { return a.raw }

// Value returns the numeric value, or 0 when the text is not a finite number.
func (a Amount) Value() float64 {
	v, ok := a.numeric()
	if !ok {
		return 0
	}
	return v
}

// Numeric reports whether the raw text parses as a finite number.
func (a Amount) Numeric() bool {
	_, ok := a.numeric()
	return ok
}

func (a Amount) numeric() (float64, bool) {
	s := strings.TrimSpace(a.raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (a Amount) String() string { return a.raw }

// MarshalJSON emits a JSON number for numeric input and the typed string
// otherwise. Empty input is emitted as 0.
func (a Amount) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(a.raw) == "" {
		return []byte("0"), nil
	}
	if v, ok := a.numeric(); ok {
		return json.Marshal(v)
	}
	return json.Marshal(a.raw)
}

// UnmarshalJSON accepts a number, a string or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.raw = n.String()
	return nil
}

// FormatMoney renders v with two decimals, as shown on the form.
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
