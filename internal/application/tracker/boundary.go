package tracker

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// Transactions and categories belong to external collaborators. These
// operations let a host feed them in; the tracker itself only reads them.

// ImportTransactions upserts a batch of the user's transactions atomically.
func (t *Tracker) ImportTransactions(ctx context.Context, userID string, transactions []model.Transaction) (int, error) {
	for i := range transactions {
		tx := &transactions[i]
		if strings.TrimSpace(tx.ID) == "" {
			return 0, model.NewValidationError("id", "transaction %d has no id", i)
		}
		if tx.Date == (civil.Date{}) || !tx.Date.IsValid() {
			return 0, model.NewValidationError("date", "transaction %s has an invalid date", tx.ID)
		}
		if tx.UserID != "" && tx.UserID != userID {
			return 0, model.NewValidationError("user_id", "transaction %s belongs to another user", tx.ID)
		}
		tx.UserID = userID
		tx.Currency = strings.ToUpper(strings.TrimSpace(tx.Currency))
		if tx.Currency == "" {
			tx.Currency = t.config.DefaultCurrency
		}
	}

	err := t.write(ctx, userID, func(repo storage.Repository) error {
		for i := range transactions {
			if err := repo.UpsertTransaction(ctx, &transactions[i]); err != nil {
				return fmt.Errorf("failed to store transaction %s: %w", transactions[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	t.logger.Info("imported transactions", "user_id", userID, "count", len(transactions))
	return len(transactions), nil
}

// ListTransactions returns the user's transactions, newest first.
func (t *Tracker) ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]model.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, model.NewValidationError("from", "must not be after to")
	}
	transactions, err := t.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// UpsertCategory stores a category, assigning an id when it has none.
func (t *Tracker) UpsertCategory(ctx context.Context, userID string, category model.Category) (*model.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	if category.ID == "" {
		category.ID = t.newID()
	}
	category.UserID = userID

	err := t.write(ctx, userID, func(repo storage.Repository) error {
		if err := repo.UpsertCategory(ctx, &category); err != nil {
			return fmt.Errorf("failed to store category %s: %w", category.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns the user's categories.
func (t *Tracker) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	categories, err := t.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
