package core

import (
	"testing"
	"time"
)

func charges() []ChargeRecord {
	return []ChargeRecord{
		{Description: "market", Owner: "user1", Value: 100, ValidateDate: "10/01/2024", Category: "Food", Status: "open", Account: "nu"},
		{Description: "rent", Owner: "user2", Value: 200, ValidateDate: "05/01/2024", Category: "House", Status: "open", Account: "itau"},
		{Description: "pharmacy", Owner: "user1", Value: 150, ValidateDate: "20/01/2024", Category: "Health", Status: "paid", Account: "nu"},
	}
}

func TestFilterByOwner(t *testing.T) {
	data := charges()
	got := FilterByOwner(data, "user1")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	var sum float64
	for _, r := range got {
		sum += r.Value
	}
	if sum != 250 {
		t.Errorf("sum = %v, want 250", sum)
	}
}

func TestFilterByOwnerCaseAndWhitespace(t *testing.T) {
	data := charges()
	upper := FilterByOwner(data, "USER1")
	padded := FilterByOwner(data, " user1 ")
	if len(upper) != len(padded) || len(upper) != 2 {
		t.Errorf("case/whitespace variants differ: %d vs %d", len(upper), len(padded))
	}
}

func TestFilterByOwnerEmptyName(t *testing.T) {
	data := charges()
	if got := FilterByOwner(data, ""); len(got) != len(data) {
		t.Errorf("empty owner filter dropped rows: %d", len(got))
	}
}

func TestFilterByDateRange(t *testing.T) {
	data := []ChargeRecord{
		{Description: "before", ValidateDate: "01/01/2024"},
		{Description: "start-day", ValidateDate: "05/01/2024"},
		{Description: "end-day", ValidateDate: "10/01/2024"},
		{Description: "after", ValidateDate: "11/01/2024"},
		{Description: "broken-date", ValidateDate: "??"},
	}
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)

	got := FilterByDateRange(data, &start, &end, FieldValidateDate)
	names := map[string]bool{}
	for _, r := range got {
		names[r.Description] = true
	}
	if !names["start-day"] || !names["end-day"] {
		t.Error("range must be inclusive at both bounds")
	}
	if names["before"] || names["after"] {
		t.Error("rows outside the range leaked through")
	}
	if !names["broken-date"] {
		t.Error("unparseable dates must be kept, not hidden")
	}
}

func TestFilterByDateRangeOpenBounds(t *testing.T) {
	data := charges()
	if got := FilterByDateRange(data, nil, nil, FieldValidateDate); len(got) != len(data) {
		t.Errorf("nil bounds filtered rows: %d", len(got))
	}
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.Local)
	got := FilterByDateRange(data, nil, &end, FieldValidateDate)
	// Only "rent" (05/01) is on or before the end day.
	if len(got) != 1 || got[0].Description != "rent" {
		t.Errorf("end-only filter = %v", got)
	}
}

func TestFilterByTag(t *testing.T) {
	data := []ChargeRecord{
		{Description: "settled", Tags: "recebi"},
		{Description: "settled-padded", Tags: " Recebi "},
		{Description: "open", Tags: ""},
	}

	unsettled := FilterByTag(data, TagExcluded, SettledTag)
	if len(unsettled) != 1 || unsettled[0].Description != "open" {
		t.Errorf("excluded mode = %v", unsettled)
	}

	settled := FilterByTag(data, TagOnly, SettledTag)
	if len(settled) != 2 {
		t.Errorf("only mode kept %d rows, want 2", len(settled))
	}

	if all := FilterByTag(data, TagAll, SettledTag); len(all) != 3 {
		t.Errorf("all mode kept %d rows, want 3", len(all))
	}
}

func TestFilterByMonth(t *testing.T) {
	data := []ChargeRecord{
		{Description: "jan", Month: "January", Year: "2024"},
		{Description: "feb", Month: "February", Year: "2024"},
	}
	got := FilterByMonth(data, "january", "2024")
	if len(got) != 1 || got[0].Description != "jan" {
		t.Errorf("FilterByMonth = %v", got)
	}
	if got := FilterByMonth(data, "", "2024"); len(got) != 2 {
		t.Errorf("missing month must not filter, got %d", len(got))
	}
}

func TestSortByColumn(t *testing.T) {
	data := []ChargeRecord{
		{Description: "b", Value: 30, ValidateDate: "10/01/2024"},
		{Description: "A", Value: 10, ValidateDate: "garbage"},
		{Description: "c", Value: 20, ValidateDate: "05/01/2024"},
	}

	byValue := SortByColumn(data, ColValue, true)
	if byValue[0].Value != 10 || byValue[2].Value != 30 {
		t.Errorf("value asc = %v", byValue)
	}

	byDesc := SortByColumn(data, ColDescription, true)
	if byDesc[0].Description != "A" || byDesc[1].Description != "b" {
		t.Errorf("description sort must be case-insensitive: %v", byDesc)
	}

	byDate := SortByColumn(data, ColValidateDate, true)
	// Unparseable dates collapse to epoch 0 and sort first ascending.
	if byDate[0].ValidateDate != "garbage" {
		t.Errorf("unparseable date should sort to the extreme, got %v first", byDate[0].ValidateDate)
	}

	byDateDesc := SortByColumn(data, ColValidateDate, false)
	if byDateDesc[0].ValidateDate != "10/01/2024" {
		t.Errorf("date desc = %v", byDateDesc)
	}

	// The input must not be mutated.
	if data[0].Description != "b" {
		t.Error("SortByColumn mutated its input")
	}
}

func TestGroupByOwner(t *testing.T) {
	data := append(charges(), ChargeRecord{Description: "orphan"})
	grouped := GroupByOwner(data)
	if len(grouped["user1"]) != 2 || len(grouped["user2"]) != 1 {
		t.Errorf("grouping wrong: %v", grouped)
	}
	if len(grouped["Unknown"]) != 1 {
		t.Errorf("ownerless rows should group under Unknown: %v", grouped["Unknown"])
	}
}
