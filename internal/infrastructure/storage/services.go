package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

const serviceColumns = `
	id, user_id, name, normalized_name, category_id, frequency, typical_day_of_month,
	estimated_amount, amount_varies, min_amount, max_amount, currency, status, notes,
	next_expected_date, first_payment_date, last_payment_date,
	auto_detection_confidence, created_on, created_at, updated_at`

// CreateService inserts a new service
func (s *Storage) CreateService(ctx context.Context, svc *model.RecurringService) error {
	query := `INSERT INTO services (` + serviceColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		svc.ID,
		svc.UserID,
		svc.Name,
		svc.NormalizedName,
		nullStringValue(svc.CategoryID),
		string(svc.Frequency),
		nullIntValue(svc.TypicalDayOfMonth),
		svc.EstimatedAmount,
		svc.AmountVaries,
		svc.MinAmount,
		svc.MaxAmount,
		svc.Currency,
		string(svc.Status),
		svc.Notes,
		nullDateValue(svc.NextExpectedDate),
		nullDateValue(svc.FirstPaymentDate),
		nullDateValue(svc.LastPaymentDate),
		nullIntValue(svc.AutoDetectionConfidence),
		nullDateValue(createdOn(svc)),
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert service: %w", mapError(err))
	}
	return nil
}

// UpdateService overwrites the mutable columns of a service
func (s *Storage) UpdateService(ctx context.Context, svc *model.RecurringService) error {
	query := `
	UPDATE services SET
		name = ?, normalized_name = ?, category_id = ?, frequency = ?, typical_day_of_month = ?,
		estimated_amount = ?, amount_varies = ?, min_amount = ?, max_amount = ?, currency = ?,
		status = ?, notes = ?, next_expected_date = ?, first_payment_date = ?, last_payment_date = ?,
		auto_detection_confidence = ?, updated_at = ?
	WHERE id = ? AND user_id = ?`

	res, err := s.q.ExecContext(ctx, query,
		svc.Name,
		svc.NormalizedName,
		nullStringValue(svc.CategoryID),
		string(svc.Frequency),
		nullIntValue(svc.TypicalDayOfMonth),
		svc.EstimatedAmount,
		svc.AmountVaries,
		svc.MinAmount,
		svc.MaxAmount,
		svc.Currency,
		string(svc.Status),
		svc.Notes,
		nullDateValue(svc.NextExpectedDate),
		nullDateValue(svc.FirstPaymentDate),
		nullDateValue(svc.LastPaymentDate),
		nullIntValue(svc.AutoDetectionConfidence),
		svc.UpdatedAt,
		svc.ID,
		svc.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service %s: %w", svc.ID, mapError(err))
	}
	return expectOneRow(res)
}

// DeleteService deletes a service; its payments go with it
func (s *Storage) DeleteService(ctx context.Context, userID, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM services WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", id, err)
	}
	return expectOneRow(res)
}

// GetService retrieves a service by ID
func (s *Storage) GetService(ctx context.Context, userID, id string) (*model.RecurringService, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ? AND user_id = ?`

	svc, err := scanService(s.q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return svc, nil
}

// FindServiceByNormalizedName returns the live service with the given key
func (s *Storage) FindServiceByNormalizedName(ctx context.Context, userID, normalizedName string) (*model.RecurringService, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
	WHERE user_id = ? AND normalized_name = ? AND status != 'cancelled'`

	svc, err := scanService(s.q.QueryRowContext(ctx, query, userID, normalizedName))
	if err != nil {
		return nil, mapError(err)
	}
	return svc, nil
}

// ListServices returns services matching the filter, ordered by name
func (s *Storage) ListServices(ctx context.Context, userID string, filter ServiceFilter) ([]model.RecurringService, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE user_id = ?`
	args := []any{userID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer func() { _ = rows.Close() }()

	services := make([]model.RecurringService, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

func scanService(row rowScanner) (*model.RecurringService, error) {
	var (
		svc                       model.RecurringService
		categoryID                sql.NullString
		frequency, status         string
		typicalDay, confidence    sql.NullInt64
		estimated, minAmt, maxAmt decimal.NullDecimal
		next, first, last, since  sql.NullString
	)

	err := row.Scan(
		&svc.ID,
		&svc.UserID,
		&svc.Name,
		&svc.NormalizedName,
		&categoryID,
		&frequency,
		&typicalDay,
		&estimated,
		&svc.AmountVaries,
		&minAmt,
		&maxAmt,
		&svc.Currency,
		&status,
		&svc.Notes,
		&next,
		&first,
		&last,
		&confidence,
		&since,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	svc.CategoryID = stringPtr(categoryID)
	svc.Frequency = model.Frequency(frequency)
	svc.Status = model.ServiceStatus(status)
	svc.TypicalDayOfMonth = intPtr(typicalDay)
	svc.AutoDetectionConfidence = intPtr(confidence)
	svc.EstimatedAmount = estimated
	svc.MinAmount = minAmt
	svc.MaxAmount = maxAmt

	if svc.NextExpectedDate, err = parseNullDate(next); err != nil {
		return nil, err
	}
	if svc.FirstPaymentDate, err = parseNullDate(first); err != nil {
		return nil, err
	}
	if svc.LastPaymentDate, err = parseNullDate(last); err != nil {
		return nil, err
	}
	on, err := parseNullDate(since)
	if err != nil {
		return nil, err
	}
	if on != nil {
		svc.CreatedOn = *on
	}

	return &svc, nil
}

func createdOn(svc *model.RecurringService) *civil.Date {
	if !svc.CreatedOn.IsValid() {
		return nil
	}
	return &svc.CreatedOn
}
