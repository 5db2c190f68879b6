package dto

import (
	"time"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/matcher"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// DetectResponse is returned by GET /api/detect.
type DetectResponse struct {
	Candidates []model.Candidate `json:"candidates"`
	Count      int               `json:"count"`
}

// ServiceListResponse is returned when listing services.
type ServiceListResponse struct {
	Services []tracker.ServiceView `json:"services"`
	Count    int                   `json:"count"`
}

// PaymentListResponse is returned by the payment listing and calendar endpoints.
type PaymentListResponse struct {
	Payments []tracker.PaymentView `json:"payments"`
	Count    int                   `json:"count"`
}

// MatchListResponse is returned by GET /api/transactions/:id/matches.
type MatchListResponse struct {
	TransactionID string                `json:"transaction_id"`
	Matches       []matcher.MatchResult `json:"matches"`
	Count         int                   `json:"count"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []model.Transaction `json:"transactions"`
	Count        int                 `json:"count"`
}

// ImportResponse is returned by POST /api/transactions.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// CategoryListResponse is returned when listing categories.
type CategoryListResponse struct {
	Categories []model.Category `json:"categories"`
	Count      int              `json:"count"`
}
