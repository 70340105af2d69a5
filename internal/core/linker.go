package core

import (
	"sort"
	"strings"
)

// Matcher decides whether a payment refers to a charge. Matching against a
// spreadsheet ledger is heuristic: there is no foreign key, so matchers
// answer a plain yes/no and callers accept occasional false positives on
// similar descriptions. Keeping the decision behind this interface lets a
// strict relation-key matcher replace the heuristic without touching callers.
type Matcher interface {
	Matches(payment PaymentRecord, charge ChargeRecord) bool
}

// DescriptionMatcher links a payment to a charge when the payment's relation
// field equals the charge description (legacy rows carried the description
// there instead of the code), or when the payment description contains the
// charge description as a case-insensitive substring.
//
// Known limitation: two charges with similar descriptions can both match the
// same payment. That mirrors how the ledger has always been reconciled and
// is not silently corrected here.
type DescriptionMatcher struct{}

func (DescriptionMatcher) Matches(payment PaymentRecord, charge ChargeRecord) bool {
	if charge.Description == "" {
		return false
	}
	if payment.RelatedCode == charge.Description {
		return true
	}
	return strings.Contains(
		strings.ToLower(payment.Description),
		strings.ToLower(charge.Description),
	)
}

// FindLinkedPayment returns the first payment linked to the charge, or nil.
func FindLinkedPayment(m Matcher, charge ChargeRecord, payments []PaymentRecord) *PaymentRecord {
	for i := range payments {
		if m.Matches(payments[i], charge) {
			return &payments[i]
		}
	}
	return nil
}

// UnlinkedCharges returns the charges with no linked payment, sorted oldest
// first by due date, falling back to purchase date. This is the allocation
// pool a general payment is applied against. When either date of a pair is
// unparseable the pair keeps its input order.
func UnlinkedCharges(m Matcher, charges []ChargeRecord, payments []PaymentRecord) []ChargeRecord {
	pool := make([]ChargeRecord, 0, len(charges))
	for _, c := range charges {
		if FindLinkedPayment(m, c, payments) == nil {
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		di, oki := ParseDate(firstNonEmpty(pool[i].ValidateDate, pool[i].PurchaseDate))
		dj, okj := ParseDate(firstNonEmpty(pool[j].ValidateDate, pool[j].PurchaseDate))
		if !oki || !okj {
			return false
		}
		return di.Before(dj)
	})
	return pool
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
