package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodePacked parses a numeral whose decimal point was dropped before the
// last digit, e.g. "0551" is 55.1 and "-091" is -9.1.
func DecodePacked(text string) (float64, error) {
	if len(text) < 2 {
		return 0, &ParseError{Raw: text, Reason: "packed decimal needs at least 2 characters"}
	}

	digits := text
	if text[0] == '-' || text[0] == '+' {
		digits = text[1:]
	}
	if digits == "" {
		return 0, &ParseError{Raw: text, Reason: "no digits"}
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, &ParseError{Raw: text, Reason: fmt.Sprintf("non-digit %q", digits[i])}
		}
	}

	cut := len(text) - 1
	v, err := strconv.ParseFloat(text[:cut]+"."+text[cut:], 64)
	if err != nil {
		return 0, &ParseError{Raw: text, Reason: err.Error()}
	}
	return v, nil
}

// EncodePacked formats v with one decimal in a zero padded field of width
// characters (the point included) and drops the point: 53.2 -> "0532".
func EncodePacked(v float64, width int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("cannot encode %v", v)
	}
	s := fmt.Sprintf("%0*.1f", width, v)
	return strings.Replace(s, ".", "", 1), nil
}

// EncodeFraction converts a fraction in [0,1] to the device's percentage
// field, e.g. 0.532 -> "0532".
func EncodeFraction(property string, v float64) (string, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return "", &RangeError{Property: property, Value: v, Min: 0, Max: 1}
	}
	return EncodePacked(v*100, 5)
}
