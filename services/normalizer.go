package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"autoria-scraper/models"
)

var (
	// thousandRegexp captures "120 тис" / "120 тыс" style odometer readings.
	thousandRegexp = regexp.MustCompile(`(\d+)\s*(?:тис|тыс)`)
	// digitsRegexp captures every run of digits.
	digitsRegexp = regexp.MustCompile(`\d+`)
	// plateRegexp matches a Ukrainian plate: 2 letters, 4 digits, 2 letters.
	plateRegexp = regexp.MustCompile(`[A-ZА-ЯІЇЄ]{2}\s?\d{4}\s?[A-ZА-ЯІЇЄ]{2}`)
	// vinRegexp matches 17 VIN characters (no I, O or Q).
	vinRegexp = regexp.MustCompile(`[A-HJ-NPR-Z0-9]{17}`)
)

// NormalizeOdometer converts raw odometer text to kilometres.
// "120 тис км" → 120000, "95 000 км" → 95000. Values above
// models.MaxOdometerKm are clamped. Unparseable input yields 0.
func NormalizeOdometer(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	if m := thousandRegexp.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > models.MaxOdometerKm/1000 {
			return models.MaxOdometerKm
		}
		return clampOdometer(n * 1000)
	}

	cleaned := strings.NewReplacer("\u00a0", " ", "км", "", ",", "").Replace(text)
	digits := strings.Join(digitsRegexp.FindAllString(cleaned, -1), "")
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0
	}
	if len(digits) > len(strconv.Itoa(models.MaxOdometerKm)) {
		return models.MaxOdometerKm
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return clampOdometer(value)
}

func clampOdometer(v int) int {
	if v > models.MaxOdometerKm {
		return models.MaxOdometerKm
	}
	if v < 0 {
		return 0
	}
	return v
}

// ParsePrice keeps only the digits of raw and parses them.
// "250 000 $" → 250000. Empty or overflowing input yields 0.
func ParsePrice(raw string) int {
	digits := DigitsOnly(raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone rebuilds a full 380-prefixed Ukrainian number from the
// truncated forms sellers type. Rules are applied in order:
//
//	10 digits starting with 0    → "38" + digits
//	already starting with 380    → unchanged
//	11 digits starting with 8    → leading 8 becomes 3
//	9 digits starting with 9     → "380" + digits
//
// Anything else is returned unchanged.
func NormalizePhone(digits string) string {
	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "38" + digits
	case strings.HasPrefix(digits, "380"):
		return digits
	case len(digits) == 11 && strings.HasPrefix(digits, "8"):
		return "3" + digits[1:]
	case len(digits) == 9 && strings.HasPrefix(digits, "9"):
		return "380" + digits
	default:
		return digits
	}
}

// PhoneFromFormatted turns a display string like "(067) 123 45 67" into
// normalized digits. Returns "" when no digits are present.
func PhoneFromFormatted(raw string) string {
	digits := DigitsOnly(raw)
	if digits == "" {
		return ""
	}
	return NormalizePhone(digits)
}

// ExtractPlate returns the plate number found in text, or the trimmed text
// itself when no plate pattern is present.
func ExtractPlate(text string) string {
	if m := plateRegexp.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}

// FindVIN returns the first VIN-shaped run in text, or "".
func FindVIN(text string) string {
	return vinRegexp.FindString(text)
}

// NormalizeText applies NFC, trims and collapses internal whitespace.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
