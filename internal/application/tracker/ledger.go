package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/eshaffer321/recurring-ledger/internal/domain/matcher"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// Link records transactionID as a realized payment of serviceID. When
// confidence is nil the match scorer supplies it.
func (t *Tracker) Link(ctx context.Context, userID, serviceID, transactionID string, matchedBy model.MatchedBy, confidence *int) (*model.ServicePayment, error) {
	if matchedBy == "" {
		matchedBy = model.MatchedManual
	}
	if !matchedBy.Valid() {
		return nil, model.NewValidationError("matched_by", "must be auto or manual, got %q", matchedBy)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 100) {
		return nil, model.NewValidationError("match_confidence", "must be between 0 and 100, got %d", *confidence)
	}
	if transactionID == "" {
		return nil, model.NewValidationError("transaction_id", "is required")
	}

	var payment *model.ServicePayment
	err := t.write(ctx, userID, func(repo storage.Repository) error {
		svc, err := loadService(ctx, repo, userID, serviceID)
		if err != nil {
			return err
		}
		tx, err := repo.GetTransaction(ctx, userID, transactionID)
		if err != nil {
			return notFound("transaction", transactionID, err)
		}

		if confidence == nil {
			score := t.scorer.Score(*tx, *svc).Confidence
			confidence = &score
		}

		payment, err = t.linkTransaction(ctx, repo, svc, tx, matchedBy, *confidence)
		if err != nil {
			return err
		}
		_, err = t.refreshService(ctx, repo, svc)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("linked transaction",
		"user_id", userID,
		"service_id", serviceID,
		"transaction_id", transactionID,
		"matched_by", matchedBy,
		"confidence", *payment.MatchConfidence)
	return payment, nil
}

// linkTransaction inserts the realized payment. It does not reconcile.
func (t *Tracker) linkTransaction(
	ctx context.Context,
	repo storage.Repository,
	svc *model.RecurringService,
	tx *model.Transaction,
	matchedBy model.MatchedBy,
	confidence int,
) (*model.ServicePayment, error) {
	existing, err := repo.GetPaymentByTransaction(ctx, svc.UserID, tx.ID)
	switch {
	case err == nil:
		return nil, &model.AlreadyLinkedError{
			TransactionID: tx.ID,
			ServiceID:     existing.ServiceID,
			PaymentID:     existing.ID,
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing link: %w", err)
	}

	txID := tx.ID
	currency := tx.Currency
	if currency == "" {
		currency = svc.Currency
	}
	payment := &model.ServicePayment{
		ID:              t.newID(),
		UserID:          svc.UserID,
		ServiceID:       svc.ID,
		TransactionID:   &txID,
		PaymentDate:     tx.Date,
		Amount:          tx.Amount.Abs(),
		Currency:        currency,
		Status:          model.PaymentPaid,
		MatchConfidence: &confidence,
		MatchedBy:       matchedBy,
		CreatedAt:       t.now(),
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, &model.AlreadyLinkedError{TransactionID: tx.ID}
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

// Unlink deletes a realized payment and re-derives its service's dates.
func (t *Tracker) Unlink(ctx context.Context, userID, paymentID string) error {
	var serviceID string
	err := t.write(ctx, userID, func(repo storage.Repository) error {
		payment, err := repo.GetPayment(ctx, userID, paymentID)
		if err != nil {
			return notFound("payment", paymentID, err)
		}
		serviceID = payment.ServiceID

		if err := repo.DeletePayment(ctx, userID, paymentID); err != nil {
			return notFound("payment", paymentID, err)
		}

		svc, err := loadService(ctx, repo, userID, payment.ServiceID)
		if err != nil {
			return err
		}
		_, err = t.refreshService(ctx, repo, svc)
		return err
	})
	if err != nil {
		return err
	}

	t.logger.Info("unlinked payment",
		"user_id", userID,
		"payment_id", paymentID,
		"service_id", serviceID)
	return nil
}

// FindPotentialMatches ranks the user's services as owners of a transaction.
func (t *Tracker) FindPotentialMatches(ctx context.Context, userID, transactionID string) ([]matcher.MatchResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	tx, err := t.repo.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, notFound("transaction", transactionID, err)
	}
	services, err := t.repo.ListServices(ctx, userID, storage.ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return t.scorer.FindPotentialMatches(*tx, services), nil
}
