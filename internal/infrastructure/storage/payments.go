package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

const paymentColumns = `
	id, user_id, service_id, transaction_id, payment_date, amount, currency,
	status, is_predicted, match_confidence, matched_by, created_at`

// CreatePayment inserts a payment row
func (s *Storage) CreatePayment(ctx context.Context, payment *model.ServicePayment) error {
	query := `INSERT INTO service_payments (` + paymentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.ServiceID,
		nullStringValue(payment.TransactionID),
		dateValue(payment.PaymentDate),
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.IsPredicted,
		nullIntValue(payment.MatchConfidence),
		string(payment.MatchedBy),
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", mapError(err))
	}
	return nil
}

// DeletePayment deletes a payment by ID
func (s *Storage) DeletePayment(ctx context.Context, userID, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM service_payments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete payment %s: %w", id, err)
	}
	return expectOneRow(res)
}

// GetPayment retrieves a payment by ID
func (s *Storage) GetPayment(ctx context.Context, userID, id string) (*model.ServicePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM service_payments WHERE id = ? AND user_id = ?`

	payment, err := scanPayment(s.q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

// GetPaymentByTransaction returns the realized payment funded by transactionID
func (s *Storage) GetPaymentByTransaction(ctx context.Context, userID, transactionID string) (*model.ServicePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM service_payments
	WHERE user_id = ? AND transaction_id = ? AND is_predicted = 0`

	payment, err := scanPayment(s.q.QueryRowContext(ctx, query, userID, transactionID))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

// ListPayments returns payments matching the filter, newest first
func (s *Storage) ListPayments(ctx context.Context, userID string, filter PaymentFilter) ([]model.ServicePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM service_payments WHERE user_id = ?`
	args := []any{userID}

	if filter.ServiceID != "" {
		query += ` AND service_id = ?`
		args = append(args, filter.ServiceID)
	}
	if filter.From != nil {
		query += ` AND payment_date >= ?`
		args = append(args, dateValue(*filter.From))
	}
	if filter.To != nil {
		query += ` AND payment_date <= ?`
		args = append(args, dateValue(*filter.To))
	}
	query += ` ORDER BY payment_date DESC, created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payments := make([]model.ServicePayment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*model.ServicePayment, error) {
	var (
		p                 model.ServicePayment
		transactionID     sql.NullString
		paymentDate       string
		status, matchedBy string
		matchConfidence   sql.NullInt64
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ServiceID,
		&transactionID,
		&paymentDate,
		&p.Amount,
		&p.Currency,
		&status,
		&p.IsPredicted,
		&matchConfidence,
		&matchedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.TransactionID = stringPtr(transactionID)
	p.Status = model.PaymentStatus(status)
	p.MatchedBy = model.MatchedBy(matchedBy)
	p.MatchConfidence = intPtr(matchConfidence)
	if p.PaymentDate, err = parseDate(paymentDate); err != nil {
		return nil, err
	}

	return &p, nil
}
