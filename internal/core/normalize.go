package core

// Column headers vary between ledger deployments: some sheets carry the
// human-readable header ("Purchase Date"), others the camelCase key of an
// earlier export. Each canonical field therefore resolves from an ordered
// candidate list, first non-empty match wins. The tables below are plain
// data so a new deployment only needs an extra entry, not reflection.

var chargeKeys = map[string][]string{
	"purchaseDate": {"Purchase Date", "purchaseDate"},
	"validateDate": {"Validate Date", "validateDate"},
	"description":  {"Description", "description"},
	"value":        {"Value", "value"},
	"account":      {"Account", "account"},
	"status":       {"Status", "status"},
	"category":     {"Category", "category"},
	"subcategory":  {"Subcategory", "subcategory"},
	// "Recebi" first: on credit sheets the settlement flag is the tag
	// column repurposed, and it must win over a stale generic Tags column.
	"tags":        {"Recebi", "Tags", "tags"},
	"owner":       {"Pessoas", "pessoas"},
	"credit":      {"Credit", "credit"},
	"card":        {"Card", "card"},
	"observation": {"Observation", "observation"},
	"month":       {"Month", "month"},
	"year":        {"Year", "year"},
	"code":        {"code", "codigo"},
}

var paymentKeys = map[string][]string{
	"date":        {"Date", "date"},
	"description": {"Description", "description"},
	"value":       {"Value", "value"},
	"account":     {"Account", "account"},
	"status":      {"Status", "status"},
	"category":    {"Category", "category"},
	"subcategory": {"Subcategory", "subcategory"},
	"payerTag":    {"Tags", "tags", "Payer", "payer"},
	"proofUrl":    {"Proof", "proofUrl"},
	"relatedCode": {"Related Code", "relatedCreditId", "codigoRelacao"},
	"observation": {"Observation", "observation"},
}

func resolve(row map[string]string, candidates []string) string {
	for _, k := range candidates {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// NormalizeCharge converts a raw ledger row into a canonical ChargeRecord.
// Missing fields default to the empty string, a missing value to 0 and an
// unparseable value to NaN. Pure; never fails.
func NormalizeCharge(row map[string]string) ChargeRecord {
	value := resolve(row, chargeKeys["value"])
	if value == "" {
		value = "0"
	}
	return ChargeRecord{
		PurchaseDate: resolve(row, chargeKeys["purchaseDate"]),
		ValidateDate: resolve(row, chargeKeys["validateDate"]),
		Description:  resolve(row, chargeKeys["description"]),
		Value:        ParseAmount(value),
		Account:      resolve(row, chargeKeys["account"]),
		Status:       resolve(row, chargeKeys["status"]),
		Category:     resolve(row, chargeKeys["category"]),
		Subcategory:  resolve(row, chargeKeys["subcategory"]),
		Tags:         resolve(row, chargeKeys["tags"]),
		Owner:        resolve(row, chargeKeys["owner"]),
		Credit:       resolve(row, chargeKeys["credit"]),
		Card:         resolve(row, chargeKeys["card"]),
		Observation:  resolve(row, chargeKeys["observation"]),
		Month:        resolve(row, chargeKeys["month"]),
		Year:         resolve(row, chargeKeys["year"]),
		Code:         resolve(row, chargeKeys["code"]),
	}
}

// NormalizeCharges maps NormalizeCharge over a fetched range.
func NormalizeCharges(rows []map[string]string) []ChargeRecord {
	out := make([]ChargeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, NormalizeCharge(row))
	}
	return out
}

// NormalizePayment converts a raw income row into a PaymentRecord.
func NormalizePayment(row map[string]string) PaymentRecord {
	value := resolve(row, paymentKeys["value"])
	if value == "" {
		value = "0"
	}
	return PaymentRecord{
		Date:        resolve(row, paymentKeys["date"]),
		Description: resolve(row, paymentKeys["description"]),
		Value:       ParseAmount(value),
		Account:     resolve(row, paymentKeys["account"]),
		Status:      resolve(row, paymentKeys["status"]),
		Category:    resolve(row, paymentKeys["category"]),
		Subcategory: resolve(row, paymentKeys["subcategory"]),
		PayerTag:    resolve(row, paymentKeys["payerTag"]),
		ProofURL:    resolve(row, paymentKeys["proofUrl"]),
		RelatedCode: resolve(row, paymentKeys["relatedCode"]),
		Observation: resolve(row, paymentKeys["observation"]),
	}
}

// NormalizePayments maps NormalizePayment over a fetched range.
func NormalizePayments(rows []map[string]string) []PaymentRecord {
	out := make([]PaymentRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, NormalizePayment(row))
	}
	return out
}
