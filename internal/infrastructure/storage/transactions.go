package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// linkedClause holds when a realized payment references the transaction.
const linkedClause = `EXISTS (
	SELECT 1 FROM service_payments p
	WHERE p.user_id = t.user_id AND p.transaction_id = t.id AND p.is_predicted = 0
)`

const transactionSelect = `
	SELECT t.id, t.user_id, t.date, t.amount, t.currency, t.description, t.merchant, t.category_id,
	       ` + linkedClause + ` AS linked
	FROM transactions t`

// UpsertTransaction inserts a transaction or replaces its fields
func (s *Storage) UpsertTransaction(ctx context.Context, tx *model.Transaction) error {
	query := `
	INSERT INTO transactions (id, user_id, date, amount, currency, description, merchant, category_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, id) DO UPDATE SET
		date = excluded.date,
		amount = excluded.amount,
		currency = excluded.currency,
		description = excluded.description,
		merchant = excluded.merchant,
		category_id = excluded.category_id`

	_, err := s.q.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		dateValue(tx.Date),
		tx.Amount,
		tx.Currency,
		tx.Description,
		tx.Merchant,
		nullStringValue(tx.CategoryID),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", tx.ID, mapError(err))
	}
	return nil
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	query := transactionSelect + ` WHERE t.user_id = ? AND t.id = ?`

	tx, err := scanTransaction(s.q.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		return nil, mapError(err)
	}
	return tx, nil
}

// ListTransactions returns transactions matching the filter, newest first
func (s *Storage) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	query := transactionSelect + ` WHERE t.user_id = ?`
	args := []any{userID}

	if filter.From != nil {
		query += ` AND t.date >= ?`
		args = append(args, dateValue(*filter.From))
	}
	if filter.To != nil {
		query += ` AND t.date <= ?`
		args = append(args, dateValue(*filter.To))
	}
	if filter.UnlinkedOnly {
		query += ` AND NOT ` + linkedClause
	}
	query += ` ORDER BY t.date DESC, t.id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := make([]model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		tx         model.Transaction
		date       string
		categoryID sql.NullString
	)

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&date,
		&tx.Amount,
		&tx.Currency,
		&tx.Description,
		&tx.Merchant,
		&categoryID,
		&tx.Linked,
	)
	if err != nil {
		return nil, err
	}

	tx.CategoryID = stringPtr(categoryID)
	if tx.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpsertCategory inserts a category or replaces its fields
func (s *Storage) UpsertCategory(ctx context.Context, category *model.Category) error {
	query := `
	INSERT INTO categories (id, user_id, name, color) VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, id) DO UPDATE SET name = excluded.name, color = excluded.color`

	_, err := s.q.ExecContext(ctx, query, category.ID, category.UserID, category.Name, category.Color)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", category.ID, mapError(err))
	}
	return nil
}

// GetCategory retrieves a category by ID
func (s *Storage) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	var c model.Category
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? AND id = ?`,
		userID, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Color)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// ListCategories returns the user's categories ordered by name
func (s *Storage) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
