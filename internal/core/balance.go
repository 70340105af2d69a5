package core

import (
	"math"
	"strings"
)

// TotalOutstanding sums the value of every charge whose status column does
// not already mark it paid. Paid charges contribute 0 regardless of value,
// independently of any payment linking. NaN values (corrupt rows) also
// contribute 0 so a single bad cell cannot poison the total.
func TotalOutstanding(records []ChargeRecord) float64 {
	var sum float64
	for _, r := range records {
		if r.Paid() || math.IsNaN(r.Value) {
			continue
		}
		sum += r.Value
	}
	return sum
}

// PaymentsBy returns the payments attributable to user. Payment rows are not
// structurally tied to a payer, so the match is deliberately broad: the payer
// tag equals the user, or the free-text description mentions the user, or the
// payment plausibly references one of the user's charges via the matcher.
func PaymentsBy(m Matcher, payments []PaymentRecord, charges []ChargeRecord, user string) []PaymentRecord {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return nil
	}
	out := make([]PaymentRecord, 0)
	for _, p := range payments {
		if strings.ToLower(strings.TrimSpace(p.PayerTag)) == user {
			out = append(out, p)
			continue
		}
		if strings.Contains(strings.ToLower(p.Description), user) {
			out = append(out, p)
			continue
		}
		for _, c := range charges {
			if m.Matches(p, c) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// TotalPaidBy sums the values of the payments PaymentsBy attributes to user.
// NaN values contribute 0.
func TotalPaidBy(m Matcher, payments []PaymentRecord, charges []ChargeRecord, user string) float64 {
	var sum float64
	for _, p := range PaymentsBy(m, payments, charges, user) {
		if math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value
	}
	return sum
}

// NetDebt is outstanding minus attributable payments. A negative result
// means overpayment; how to present that is the caller's decision.
func NetDebt(outstanding, paid float64) float64 {
	return outstanding - paid
}
