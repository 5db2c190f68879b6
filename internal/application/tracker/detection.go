package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/schedule"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// Detect proposes recurring services from the user's unlinked transactions.
// Nothing is persisted.
func (t *Tracker) Detect(ctx context.Context, userID string, opts detector.Options) ([]model.Candidate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if opts.MinOccurrences < 0 {
		return nil, model.NewValidationError("min_occurrences", "must not be negative")
	}
	if opts.LookbackMonths < 0 {
		return nil, model.NewValidationError("lookback_months", "must not be negative")
	}

	lookback := opts.LookbackMonths
	if lookback == 0 {
		lookback = t.config.Detector.LookbackMonths
	}
	today := t.clock.Today()
	from := schedule.AddMonths(today, -lookback)

	transactions, err := t.repo.ListTransactions(ctx, userID, storage.TransactionFilter{
		From:         &from,
		To:           &today,
		UnlinkedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	services, err := t.repo.ListServices(ctx, userID, storage.ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	candidates := t.detector.Detect(transactions, services, opts, today)

	t.logger.Info("detection finished",
		"user_id", userID,
		"transactions", len(transactions),
		"candidates", len(candidates))
	return candidates, nil
}

// ConfirmDetected persists the chosen candidates. Each candidate is created
// in its own transaction; duplicates and failures are reported and the batch
// continues.
func (t *Tracker) ConfirmDetected(ctx context.Context, userID string, candidates []model.Candidate) (*ConfirmResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	result := &ConfirmResult{
		Created:           make([]model.RecurringService, 0, len(candidates)),
		SkippedDuplicates: make([]string, 0),
	}

	for _, candidate := range candidates {
		svc, err := t.confirmOne(ctx, userID, candidate)
		var dup *model.DuplicateServiceError
		switch {
		case errors.As(err, &dup):
			result.SkippedDuplicates = append(result.SkippedDuplicates, candidate.Name)
			t.logger.Debug("skipping duplicate candidate", "name", candidate.Name, "existing_id", dup.ExistingID)
		case err != nil:
			result.Errors = append(result.Errors, ItemError{Name: candidate.Name, Error: err.Error()})
			t.logger.Warn("failed to confirm candidate", "name", candidate.Name, "error", err)
		default:
			result.Created = append(result.Created, *svc)
		}
	}
	result.CreatedCount = len(result.Created)

	t.logger.Info("confirmed candidates",
		"user_id", userID,
		"created", result.CreatedCount,
		"duplicates", len(result.SkippedDuplicates),
		"errors", len(result.Errors))
	return result, nil
}

func (t *Tracker) confirmOne(ctx context.Context, userID string, c model.Candidate) (*model.RecurringService, error) {
	if c.Confidence < 0 || c.Confidence > 100 {
		return nil, model.NewValidationError("confidence", "must be between 0 and 100, got %d", c.Confidence)
	}

	now := t.now()
	confidence := c.Confidence
	svc := &model.RecurringService{
		ID:                      t.newID(),
		UserID:                  userID,
		Name:                    c.Name,
		CategoryID:              c.CategoryID,
		Frequency:               c.Frequency,
		TypicalDayOfMonth:       c.TypicalDayOfMonth,
		EstimatedAmount:         decimal.NewNullDecimal(c.EstimatedAmount.Abs()),
		AmountVaries:            c.AmountVaries,
		MinAmount:               c.MinAmount,
		MaxAmount:               c.MaxAmount,
		Currency:                c.Currency,
		Status:                  model.StatusActive,
		AutoDetectionConfidence: &confidence,
		CreatedOn:               t.clock.Today(),
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err := t.write(ctx, userID, func(repo storage.Repository) error {
		if svc.CategoryID != nil {
			if _, err := repo.GetCategory(ctx, userID, *svc.CategoryID); errors.Is(err, storage.ErrNotFound) {
				// Detected categories come from transactions and may predate the
				// category store; the service is created uncategorised.
				svc.CategoryID = nil
			}
		}
		if err := t.validateService(ctx, repo, svc); err != nil {
			return err
		}
		if err := checkDuplicate(ctx, repo, svc); err != nil {
			return err
		}
		if err := repo.CreateService(ctx, svc); err != nil {
			return conflictAsDuplicate(svc, err)
		}

		linked := 0
		for _, txID := range c.TransactionIDs {
			tx, err := repo.GetTransaction(ctx, userID, txID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load transaction %s: %w", txID, err)
			}
			if tx.Linked {
				continue
			}
			if _, err := t.linkTransaction(ctx, repo, svc, tx, model.MatchedAuto, confidence); err != nil {
				var already *model.AlreadyLinkedError
				if errors.As(err, &already) {
					continue
				}
				return err
			}
			linked++
		}

		if _, err := t.refreshService(ctx, repo, svc); err != nil {
			return err
		}
		t.logger.Debug("created service from candidate",
			"service_id", svc.ID,
			"name", svc.Name,
			"linked", linked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
