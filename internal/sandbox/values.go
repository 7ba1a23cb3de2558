package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var currencySuffixRe = regexp.MustCompile(`\s*(KN|KUNA|HRK|EUR|USD)\s*$`)

// dateLayouts are tried in order; Croatian exports favour day-first dates
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006.",
	"02.01.2006",
	"2.1.2006.",
	"2.1.2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-06",
	time.RFC3339,
}

// cellString renders a raw cell value as text
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// ParseAmount parses a price or quantity in any of the usual notations:
// "12.99", "12,99", "1.299,00", "1,299.00", "1 299,00 kn", "€3,50"
func ParseAmount(value string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	cleaned = currencySuffixRe.ReplaceAllString(strings.ToUpper(cleaned), "")
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value in %q", value)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastDot > lastComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

// ParseDate parses an expiry date into a UTC calendar day
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// roundCents rounds to the nearest cent
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// charmPrice rounds a price down to the nearest amount ending in 9 cents
// (0.84 -> 0.79, 0.60 -> 0.59). Prices below 0.09 are only rounded to cents.
func charmPrice(v float64) float64 {
	cents := int(math.Round(v * 100))
	charmed := (cents+1)/10*10 - 1
	if charmed <= 0 {
		return float64(cents) / 100
	}
	return float64(charmed) / 100
}
