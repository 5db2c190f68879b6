// Package model defines the records shared by detection, matching,
// scheduling and reconciliation of recurring services.
//
// Dates are civil.Date (calendar days, no time of day) and amounts are
// decimal.Decimal so that no float rounding leaks into stored values.
package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a recurring service.
type Frequency string

const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyBimonthly  Frequency = "bimonthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

// Frequencies lists every frequency from shortest to longest interval.
var Frequencies = []Frequency{
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyBimonthly,
	FrequencyQuarterly,
	FrequencySemiannual,
	FrequencyAnnual,
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// IntervalDays returns the fixed day interval for day-based frequencies
// and 0 for month-based ones.
func (f Frequency) IntervalDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	default:
		return 0
	}
}

// IntervalMonths returns the calendar month interval for month-based
// frequencies and 0 for day-based ones.
func (f Frequency) IntervalMonths() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyBimonthly:
		return 2
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	default:
		return 0
	}
}

// MonthBased reports whether the anchor day-of-month is meaningful for f.
func (f Frequency) MonthBased() bool {
	return f.IntervalMonths() > 0
}

// ServiceStatus is the lifecycle status of a recurring service.
type ServiceStatus string

const (
	// StatusActive is the initial status before any schedule is computed.
	StatusActive    ServiceStatus = "active"
	StatusUpToDate  ServiceStatus = "up_to_date"
	StatusDueSoon   ServiceStatus = "due_soon"
	StatusOverdue   ServiceStatus = "overdue"
	StatusPaused    ServiceStatus = "paused"
	StatusCancelled ServiceStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusActive, StatusUpToDate, StatusDueSoon, StatusOverdue, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// Sticky reports whether the status is only changed by explicit user action.
func (s ServiceStatus) Sticky() bool {
	return s == StatusPaused || s == StatusCancelled
}

// UserSettable reports whether a user may set the status directly.
// The due-window statuses are always derived.
func (s ServiceStatus) UserSettable() bool {
	return s == StatusActive || s == StatusPaused || s == StatusCancelled
}

// PaymentStatus is the settlement status of a service payment.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
)

// MatchedBy records who linked a payment to its transaction.
type MatchedBy string

const (
	MatchedAuto   MatchedBy = "auto"
	MatchedManual MatchedBy = "manual"
)

// Valid reports whether m is auto or manual.
func (m MatchedBy) Valid() bool {
	return m == MatchedAuto || m == MatchedManual
}

// Transaction is a user's bank transaction. It is owned by the transaction
// store and read-only to this core.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"` // negative = outflow
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	CategoryID  *string         `json:"category_id,omitempty"`

	// Linked is true when a realized ServicePayment references the transaction.
	Linked bool `json:"linked"`
}

// Category is owned by the external category collaborator.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

// RecurringService is a recognised recurring payment obligation.
type RecurringService struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Name              string              `json:"name"`
	NormalizedName    string              `json:"normalized_name"`
	CategoryID        *string             `json:"category_id,omitempty"`
	Frequency         Frequency           `json:"frequency"`
	TypicalDayOfMonth *int                `json:"typical_day_of_month,omitempty"`
	EstimatedAmount   decimal.NullDecimal `json:"estimated_amount"`
	AmountVaries      bool                `json:"amount_varies"`
	MinAmount         decimal.NullDecimal `json:"min_amount"`
	MaxAmount         decimal.NullDecimal `json:"max_amount"`
	Currency          string              `json:"currency"`
	Status            ServiceStatus       `json:"status"`
	Notes             string              `json:"notes,omitempty"`

	// Derived fields, maintained by the ledger and the reconciler.
	NextExpectedDate *civil.Date `json:"next_expected_date,omitempty"`
	FirstPaymentDate *civil.Date `json:"first_payment_date,omitempty"`
	LastPaymentDate  *civil.Date `json:"last_payment_date,omitempty"`

	// AutoDetectionConfidence is nil for manually created services.
	AutoDetectionConfidence *int `json:"auto_detection_confidence,omitempty"`

	// CreatedOn is the calendar day the service was created, in the tracker's
	// clock. It anchors the schedule until a payment exists.
	CreatedOn civil.Date `json:"created_on"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AnchorDay returns the typical day of month, or 0 when unset or when the
// frequency is not month-based.
func (s *RecurringService) AnchorDay() int {
	if s.TypicalDayOfMonth == nil || !s.Frequency.MonthBased() {
		return 0
	}
	return *s.TypicalDayOfMonth
}

// ServicePayment links a service to a realized transaction, or describes a
// predicted future occurrence when TransactionID is nil.
type ServicePayment struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ServiceID       string          `json:"service_id"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	PaymentDate     civil.Date      `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          PaymentStatus   `json:"status"`
	IsPredicted     bool            `json:"is_predicted"`
	MatchConfidence *int            `json:"match_confidence,omitempty"`
	MatchedBy       MatchedBy       `json:"matched_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Candidate is an immutable detection result. Nothing is persisted until
// the caller confirms it.
type Candidate struct {
	Name              string              `json:"name"`
	NormalizedName    string              `json:"normalized_name"`
	Frequency         Frequency           `json:"frequency"`
	TypicalDayOfMonth *int                `json:"typical_day_of_month,omitempty"`
	EstimatedAmount   decimal.Decimal     `json:"estimated_amount"`
	AmountVaries      bool                `json:"amount_varies"`
	MinAmount         decimal.NullDecimal `json:"min_amount"`
	MaxAmount         decimal.NullDecimal `json:"max_amount"`
	Currency          string              `json:"currency"`
	CategoryID        *string             `json:"category_id,omitempty"`
	Confidence        int                 `json:"confidence"`
	OccurrenceCount   int                 `json:"occurrence_count"`
	FirstDate         civil.Date          `json:"first_date"`
	LastDate          civil.Date          `json:"last_date"`
	NextExpectedDate  civil.Date          `json:"next_expected_date"`
	TransactionIDs    []string            `json:"transaction_ids"`
}
