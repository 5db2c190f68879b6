package dto

import (
	"bytes"
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// OptionalDecimal distinguishes an absent field from an explicit null in a
// PATCH body. Set is true when the key was present; Value.Valid is false
// when it was null.
type OptionalDecimal struct {
	Set   bool
	Value decimal.NullDecimal
}

// UnmarshalJSON is called for explicit nulls as well, so Set records presence.
func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = decimal.NullDecimal{}
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalDecimal) patch() *decimal.NullDecimal {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

// CreateServiceRequest is the body of POST /api/services.
type CreateServiceRequest struct {
	Name              string              `json:"name"`
	CategoryID        *string             `json:"category_id"`
	Frequency         model.Frequency     `json:"frequency"`
	TypicalDayOfMonth *int                `json:"typical_day_of_month"`
	EstimatedAmount   decimal.NullDecimal `json:"estimated_amount"`
	AmountVaries      bool                `json:"amount_varies"`
	MinAmount         decimal.NullDecimal `json:"min_amount"`
	MaxAmount         decimal.NullDecimal `json:"max_amount"`
	Currency          string              `json:"currency"`
	Status            model.ServiceStatus `json:"status"`
	Notes             string              `json:"notes"`
	FirstPaymentDate  *civil.Date         `json:"first_payment_date"`
}

// ToInput converts the request to a tracker input.
func (r CreateServiceRequest) ToInput() tracker.ServiceInput {
	return tracker.ServiceInput{
		Name:              r.Name,
		CategoryID:        r.CategoryID,
		Frequency:         r.Frequency,
		TypicalDayOfMonth: r.TypicalDayOfMonth,
		EstimatedAmount:   r.EstimatedAmount,
		AmountVaries:      r.AmountVaries,
		MinAmount:         r.MinAmount,
		MaxAmount:         r.MaxAmount,
		Currency:          r.Currency,
		Status:            r.Status,
		Notes:             r.Notes,
		FirstPaymentDate:  r.FirstPaymentDate,
	}
}

// UpdateServiceRequest is the body of PATCH /api/services/:id. Omitted keys
// are unchanged; amounts may be cleared with null, the category with "" and
// the anchor day with 0.
type UpdateServiceRequest struct {
	Name              *string              `json:"name"`
	CategoryID        *string              `json:"category_id"`
	Frequency         *model.Frequency     `json:"frequency"`
	TypicalDayOfMonth *int                 `json:"typical_day_of_month"`
	EstimatedAmount   OptionalDecimal      `json:"estimated_amount"`
	AmountVaries      *bool                `json:"amount_varies"`
	MinAmount         OptionalDecimal      `json:"min_amount"`
	MaxAmount         OptionalDecimal      `json:"max_amount"`
	Currency          *string              `json:"currency"`
	Status            *model.ServiceStatus `json:"status"`
	Notes             *string              `json:"notes"`
}

// ToPatch converts the request to a tracker patch.
func (r UpdateServiceRequest) ToPatch() tracker.ServicePatch {
	return tracker.ServicePatch{
		Name:              r.Name,
		CategoryID:        r.CategoryID,
		Frequency:         r.Frequency,
		TypicalDayOfMonth: r.TypicalDayOfMonth,
		EstimatedAmount:   r.EstimatedAmount.patch(),
		AmountVaries:      r.AmountVaries,
		MinAmount:         r.MinAmount.patch(),
		MaxAmount:         r.MaxAmount.patch(),
		Currency:          r.Currency,
		Status:            r.Status,
		Notes:             r.Notes,
	}
}

// ConfirmRequest is the body of POST /api/services/confirm.
type ConfirmRequest struct {
	Candidates []model.Candidate `json:"candidates"`
}

// LinkRequest is the body of POST /api/services/:id/payments.
type LinkRequest struct {
	TransactionID   string          `json:"transaction_id"`
	MatchedBy       model.MatchedBy `json:"matched_by"`
	MatchConfidence *int            `json:"match_confidence"`
}

// ImportTransactionsRequest is the body of POST /api/transactions.
type ImportTransactionsRequest struct {
	Transactions []model.Transaction `json:"transactions"`
}

// CategoryRequest is the body of POST /api/categories.
type CategoryRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
