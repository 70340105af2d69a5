// Package http exposes the reconciliation views and payment submission
// operations as a JSON API.
//
// This file implements utilities for parsing and validating HTTP request
// data shared by the handlers.
package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GeniusFinance/house-gerencer/internal/core"
	"github.com/GeniusFinance/house-gerencer/internal/services"
)

// queryDateLayout is the wire format for range bounds.
const queryDateLayout = "2006-01-02"

// parseChargeQuery extracts the filter and sort parameters of a charge
// view from the URL query. Unrecognized values fall back to the view's
// defaults rather than erroring; views fail open.
func parseChargeQuery(query url.Values) services.ChargeQuery {
	q := services.ChargeQuery{
		RecordType: strings.TrimSpace(query.Get("type")),
		Owner:      query.Get("owner"),
		Month:      query.Get("month"),
		Year:       query.Get("year"),
	}

	if t, ok := parseQueryDate(query.Get("from")); ok {
		q.Start = &t
	}
	if t, ok := parseQueryDate(query.Get("to")); ok {
		q.End = &t
	}

	if strings.EqualFold(strings.TrimSpace(query.Get("dateField")), "purchase") {
		q.DateField = core.FieldPurchaseDate
	} else {
		q.DateField = core.FieldValidateDate
	}

	switch strings.ToLower(strings.TrimSpace(query.Get("tags"))) {
	case "only":
		q.TagMode = core.TagOnly
	case "all":
		q.TagMode = core.TagAll
	default:
		q.TagMode = core.TagExcluded
	}

	if v := strings.TrimSpace(query.Get("sortBy")); v != "" {
		q.SortBy = core.SortColumn(v)
		q.Ascending = !strings.EqualFold(strings.TrimSpace(query.Get("order")), "desc")
	}

	return q
}

func parseQueryDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseAmountField reads a positive decimal form field. Returns 0 for an
// absent field so callers can apply their own default.
func parseAmountField(form url.Values, name string) (float64, bool) {
	raw := strings.TrimSpace(form.Get(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitCodes turns a comma-separated code list into its non-empty parts.
func splitCodes(raw string) []string {
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// proofFromRequest extracts the optional proof attachment from a
// multipart submission. Returns nil when the field is absent.
func proofFromRequest(r *http.Request) (*services.ProofFile, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	file, header, err := r.FormFile("proof")
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	proof := &services.ProofFile{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	}
	return proof, func() { _ = file.Close() }, nil
}
