package http

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/GeniusFinance/house-gerencer/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// jsonNumber maps NaN to null so corrupt amounts survive the trip to the
// client instead of breaking the encoder.
func jsonNumber(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

type chargeJSON struct {
	PurchaseDate string   `json:"purchaseDate"`
	ValidateDate string   `json:"validateDate"`
	Description  string   `json:"description"`
	Value        *float64 `json:"value"`
	Account      string   `json:"account,omitempty"`
	Status       string   `json:"status,omitempty"`
	Category     string   `json:"category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Tags         string   `json:"tags,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	Code         string   `json:"code,omitempty"`
	Settled      bool     `json:"settled"`
	Paid         bool     `json:"paid"`
}

func toChargeJSON(records []core.ChargeRecord) []chargeJSON {
	out := make([]chargeJSON, 0, len(records))
	for _, r := range records {
		out = append(out, chargeJSON{
			PurchaseDate: r.PurchaseDate,
			ValidateDate: r.ValidateDate,
			Description:  r.Description,
			Value:        jsonNumber(r.Value),
			Account:      r.Account,
			Status:       r.Status,
			Category:     r.Category,
			Subcategory:  r.Subcategory,
			Tags:         r.Tags,
			Owner:        r.Owner,
			Code:         r.Code,
			Settled:      r.Settled(),
			Paid:         r.Paid(),
		})
	}
	return out
}

type paymentJSON struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Value       *float64 `json:"value"`
	Account     string   `json:"account,omitempty"`
	Status      string   `json:"status,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	PayerTag    string   `json:"payerTag,omitempty"`
	ProofURL    string   `json:"proofUrl,omitempty"`
	RelatedCode string   `json:"relatedCode,omitempty"`
	Observation string   `json:"observation,omitempty"`
}

func toPaymentJSON(records []core.PaymentRecord) []paymentJSON {
	out := make([]paymentJSON, 0, len(records))
	for _, r := range records {
		out = append(out, singlePaymentJSON(r))
	}
	return out
}

func singlePaymentJSON(r core.PaymentRecord) paymentJSON {
	return paymentJSON{
		Date:        r.Date,
		Description: r.Description,
		Value:       jsonNumber(r.Value),
		Account:     r.Account,
		Status:      r.Status,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		PayerTag:    r.PayerTag,
		ProofURL:    r.ProofURL,
		RelatedCode: r.RelatedCode,
		Observation: r.Observation,
	}
}
