package extraction

import (
	"strings"
	"unicode/utf8"
)

// Confidence scores a note by which structural address fields are filled.
// Address and city drive geocoding and weigh 35 points each; postal code and
// neighborhood weigh 15. Name, phone and reference do not count.
func Confidence(f NoteFields) float64 {
	points := 0
	if runeLen(f.Address) > 5 {
		points += 35
	}
	if runeLen(f.City) > 3 {
		points += 35
	}
	if runeLen(f.PostalCode) >= 8 {
		points += 15
	}
	if runeLen(f.Neighborhood) > 3 {
		points += 15
	}
	if points > 100 {
		points = 100
	}
	return float64(points) / 100
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
