package core

import (
	"sort"
	"strings"
	"time"
)

// TagFilterMode selects how the settlement tag is applied when filtering.
type TagFilterMode string

const (
	// TagExcluded keeps only charges without the tag (unsettled view, the default).
	TagExcluded TagFilterMode = "excluded"
	// TagOnly keeps only charges carrying the tag (settled view).
	TagOnly TagFilterMode = "only"
	// TagAll disables tag filtering.
	TagAll TagFilterMode = "all"
)

// DateField names which charge date a range filter applies to.
type DateField string

const (
	FieldPurchaseDate DateField = "purchaseDate"
	FieldValidateDate DateField = "validateDate"
)

// FilterByOwner returns the charges whose owner matches name, compared
// case-insensitively after trimming. An empty name returns the input as is.
func FilterByOwner(records []ChargeRecord, name string) []ChargeRecord {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return records
	}
	out := make([]ChargeRecord, 0, len(records))
	for _, r := range records {
		if strings.ToLower(strings.TrimSpace(r.Owner)) == name {
			out = append(out, r)
		}
	}
	return out
}

// FilterByMonth returns the charges for a specific month and year. Both
// must be provided; otherwise the input passes through unfiltered.
func FilterByMonth(records []ChargeRecord, month, year string) []ChargeRecord {
	month = strings.ToLower(strings.TrimSpace(month))
	year = strings.TrimSpace(year)
	if month == "" || year == "" {
		return records
	}
	out := make([]ChargeRecord, 0, len(records))
	for _, r := range records {
		if strings.ToLower(strings.TrimSpace(r.Month)) == month &&
			strings.TrimSpace(r.Year) == year {
			out = append(out, r)
		}
	}
	return out
}

// FilterByDateRange keeps charges whose date field falls inside the
// inclusive [start, end] range. A nil bound is open. The end bound is
// pushed to end-of-day so a same-day end includes that whole day. Rows
// whose date fails to parse are kept: hiding data because of a malformed
// cell is worse than showing one row too many.
func FilterByDateRange(records []ChargeRecord, start, end *time.Time, field DateField) []ChargeRecord {
	if start == nil && end == nil {
		return records
	}
	var endOfDay time.Time
	if end != nil {
		endOfDay = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())
	}
	out := make([]ChargeRecord, 0, len(records))
	for _, r := range records {
		d, ok := ParseDate(r.dateField(field))
		if !ok {
			out = append(out, r)
			continue
		}
		if start != nil && d.Before(*start) {
			continue
		}
		if end != nil && d.After(endOfDay) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c ChargeRecord) dateField(field DateField) string {
	if field == FieldPurchaseDate {
		return c.PurchaseDate
	}
	return c.ValidateDate
}

// FilterByTag applies a three-way settlement-tag filter. The tag value is
// compared case-insensitively after trimming.
func FilterByTag(records []ChargeRecord, mode TagFilterMode, tag string) []ChargeRecord {
	if mode == TagAll {
		return records
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	out := make([]ChargeRecord, 0, len(records))
	for _, r := range records {
		has := strings.ToLower(strings.TrimSpace(r.Tags)) == tag
		if (mode == TagOnly) == has {
			out = append(out, r)
		}
	}
	return out
}

// SortColumn names a sortable charge column.
type SortColumn string

const (
	ColPurchaseDate SortColumn = "purchaseDate"
	ColValidateDate SortColumn = "validateDate"
	ColDescription  SortColumn = "description"
	ColValue        SortColumn = "value"
	ColCategory     SortColumn = "category"
	ColStatus       SortColumn = "status"
	ColAccount      SortColumn = "account"
)

// SortByColumn returns a sorted copy of records. String columns compare
// case-insensitively; date columns compare by parsed value with unparseable
// dates treated as the zero epoch so they group at one extreme. Ties keep
// no guaranteed order. An unknown column sorts by due date.
func SortByColumn(records []ChargeRecord, column SortColumn, ascending bool) []ChargeRecord {
	out := append([]ChargeRecord(nil), records...)
	key := func(r ChargeRecord) (num float64, str string, numeric bool) {
		switch column {
		case ColPurchaseDate:
			return dateKey(r.PurchaseDate), "", true
		case ColDescription:
			return 0, strings.ToLower(r.Description), false
		case ColValue:
			return r.Value, "", true
		case ColCategory:
			return 0, strings.ToLower(r.Category), false
		case ColStatus:
			return 0, strings.ToLower(r.Status), false
		case ColAccount:
			return 0, strings.ToLower(r.Account), false
		default:
			return dateKey(r.ValidateDate), "", true
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, si, numeric := key(out[i])
		nj, sj, _ := key(out[j])
		var less bool
		if numeric {
			less = ni < nj
		} else {
			less = si < sj
		}
		if ascending {
			return less
		}
		if numeric {
			return nj < ni
		}
		return sj < si
	})
	return out
}

func dateKey(raw string) float64 {
	d, ok := ParseDate(raw)
	if !ok {
		return 0
	}
	return float64(d.UnixMilli())
}

// GroupByOwner buckets charges per owner, preserving encounter order within
// each bucket. Rows without an owner land under "Unknown".
func GroupByOwner(records []ChargeRecord) map[string][]ChargeRecord {
	grouped := make(map[string][]ChargeRecord)
	for _, r := range records {
		owner := r.Owner
		if owner == "" {
			owner = "Unknown"
		}
		grouped[owner] = append(grouped[owner], r)
	}
	return grouped
}
