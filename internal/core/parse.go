// Package core implements the debt reconciliation engine: record
// normalization, locale-tolerant parsing, filtering, balance calculation
// and payment linking. Everything here is pure; ledger I/O lives behind
// the ledger ports.
package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseAmount converts a raw cell value to a float64 amount. Numeric input
// passes through unchanged and empty input is zero. String input is parsed
// with separator-convention detection: when a comma appears after the last
// period the string is Brazilian-formatted ("1.234,56"), otherwise commas
// are thousands separators ("1,234.56"). Anything unparseable yields NaN so
// that callers can detect corrupt rows; it is deliberately not clamped to 0.
func ParseAmount(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return parseAmountString(v)
	default:
		return math.NaN()
	}
}

func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if ci := strings.LastIndex(s, ","); ci >= 0 && ci > strings.LastIndex(s, ".") {
		// Brazilian format: periods are thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// isoLayouts are the fallback formats tried when slash parsing fails.
var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a ledger date. The primary format is day/month/year with
// "/" separators; two-digit years pivot at 50 (00-49 are 2000s, 50-99 are
// 1900s) and the components are round-trip validated so impossible calendar
// dates such as 31/02/2024 are rejected. When slash parsing fails the string
// is retried as ISO-8601. The second return value is false when both fail.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if parts := strings.Split(raw, "/"); len(parts) == 3 {
		day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
		if errD == nil && errM == nil && errY == nil {
			if year < 100 {
				if year < 50 {
					year += 2000
				} else {
					year += 1900
				}
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
			if d.Year() == year && int(d.Month()) == month && d.Day() == day {
				return d, true
			}
		}
	}

	for _, layout := range isoLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a time in the ledger's native dd/mm/yyyy form.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
