// Package core implements the transaction aggregation and reconciliation
// engine: record normalization, filtering, bucketed aggregation and report
// row shaping. It is pure and has no framework or storage dependency.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in currency minor units (paise). Calculations stay in
// cents; rupee floats exist only for display and interchange.
type Money struct {
	Cents int64
}

// Rupees returns the rupee value as a float64 for display and JSON output.
// Use cents for arithmetic.
func (m Money) Rupees() float64 {
	return float64(m.Cents) / 100.0
}

// ParseAmountToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. Zero is a valid amount; signed or non-numeric input is not.
//
//	ParseAmountToCents("12.34")  -> 1234
//	ParseAmountToCents("12,34")  -> 1234
//	ParseAmountToCents("12.345") -> 1234 (rounds down)
//	ParseAmountToCents("12.346") -> 1235 (rounds up)
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Sign is carried by the transaction type, never by the amount.
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// CentsFromFloat converts a rupee value (e.g. a JSON number) to cents,
// rounding half up. NaN, infinite and negative values are rejected.
func CentsFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, ErrInvalidAmount
	}
	return int64(math.Floor(f*100 + 0.5)), nil
}

// FormatRupees renders cents as the UI does: "Rs. 1,23,456" with South
// Asian digit grouping, appending two decimals only for fractional paise.
func FormatRupees(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	rem := cents % 100
	s := groupIndian(strconv.FormatInt(whole, 10))
	if rem != 0 {
		s += fmt.Sprintf(".%02d", rem)
	}
	if neg {
		return "-Rs. " + s
	}
	return "Rs. " + s
}

// groupIndian inserts separators in 3-then-2 grouping: "1234567" -> "12,34,567".
func groupIndian(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	// Leading groups of two, then the final group of three.
	head := digits[:n-3]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	groups = append(groups, digits[n-3:])
	return strings.Join(groups, ",")
}
