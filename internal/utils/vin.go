package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"autograde-backend/internal/domain"
)

// VIN format: 17 alphanumeric characters, excluding I, O, Q.
var vinRegex = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// modelYearCodes is the ISO 3779 10th-character year sequence. Position i
// stands for 1980+i and repeats every 30 years.
const modelYearCodes = "ABCDEFGHJKLMNPRSTVWXY123456789"

// NormalizeVIN strips whitespace and dashes and upper-cases the result.
func NormalizeVIN(vin string) string {
	var b strings.Builder
	for _, r := range vin {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ValidateVIN normalizes vin and checks its format.
func ValidateVIN(vin string) (string, error) {
	n := NormalizeVIN(vin)
	if !vinRegex.MatchString(n) {
		return "", domain.NewValidationError("vin", vin, domain.ErrInvalidVIN)
	}
	return n, nil
}

// ModelYear decodes the 10th character of a valid VIN. The code repeats every
// 30 years, so the latest candidate not after latestYear wins.
func ModelYear(vin string, latestYear int) (int, error) {
	if len(vin) != 17 {
		return 0, fmt.Errorf("model year: %w", domain.ErrInvalidVIN)
	}
	idx := strings.IndexByte(modelYearCodes, vin[9])
	if idx < 0 {
		return 0, fmt.Errorf("model year code %q: %w", vin[9], domain.ErrInvalidVIN)
	}
	year := 1980 + idx
	for year+30 <= latestYear {
		year += 30
	}
	return year, nil
}

var vinTransliteration = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
}

var vinWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// CheckDigitValid reports whether the 9th character matches the North
// American check digit. Vehicles built for other markets often fail this.
func CheckDigitValid(vin string) bool {
	if !vinRegex.MatchString(vin) {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		c := vin[i]
		v := 0
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = vinTransliteration[c]
		}
		sum += v * vinWeights[i]
	}
	rem := sum % 11
	want := byte('0' + rem)
	if rem == 10 {
		want = 'X'
	}
	return vin[8] == want
}

// NormalizeRego strips whitespace and upper-cases a registration plate.
func NormalizeRego(rego string) string {
	var b strings.Builder
	for _, r := range rego {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// NormalizeState upper-cases and trims a state code such as "vic".
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
