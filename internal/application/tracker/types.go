package tracker

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// ServiceInput holds the user-supplied fields of a new service.
type ServiceInput struct {
	Name              string
	CategoryID        *string
	Frequency         model.Frequency
	TypicalDayOfMonth *int
	EstimatedAmount   decimal.NullDecimal
	AmountVaries      bool
	MinAmount         decimal.NullDecimal
	MaxAmount         decimal.NullDecimal
	Currency          string              // Empty = configured default
	Status            model.ServiceStatus // Empty = active
	Notes             string

	// FirstPaymentDate seeds the schedule of a service without history.
	FirstPaymentDate *civil.Date
}

// ServicePatch is a partial update. Nil fields are left unchanged.
//
// An empty CategoryID clears the category, a zero TypicalDayOfMonth clears
// the anchor day, and an amount with Valid=false clears that amount.
type ServicePatch struct {
	Name              *string
	CategoryID        *string
	Frequency         *model.Frequency
	TypicalDayOfMonth *int
	EstimatedAmount   *decimal.NullDecimal
	AmountVaries      *bool
	MinAmount         *decimal.NullDecimal
	MaxAmount         *decimal.NullDecimal
	Currency          *string
	Status            *model.ServiceStatus
	Notes             *string
}

// StatusFilter restricts GetServices to the given statuses. Empty = all.
type StatusFilter []model.ServiceStatus

// ServiceView is a service with, optionally, its realized payments.
type ServiceView struct {
	model.RecurringService
	Payments []model.ServicePayment `json:"payments,omitempty"`
}

// PaymentView is a realized or predicted payment decorated for display.
type PaymentView struct {
	model.ServicePayment
	ServiceName string             `json:"service_name,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// ItemError reports the failure of one item in a batch operation.
type ItemError struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// ConfirmResult summarises a ConfirmDetected batch.
type ConfirmResult struct {
	CreatedCount      int                      `json:"created_count"`
	Created           []model.RecurringService `json:"created"`
	SkippedDuplicates []string                 `json:"skipped_duplicates"`
	Errors            []ItemError              `json:"errors,omitempty"`
}

// RecalculateResult summarises a RecalculateAllServices run.
type RecalculateResult struct {
	Processed int         `json:"processed"`
	Updated   int         `json:"updated"`
	Failures  []ItemError `json:"failures,omitempty"`
}
