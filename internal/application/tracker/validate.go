package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/normalizer"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// validateService checks the user-editable fields of svc and normalises the
// currency. It does not touch derived fields.
func (t *Tracker) validateService(ctx context.Context, repo storage.Repository, svc *model.RecurringService) error {
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" {
		return model.NewValidationError("name", "is required")
	}
	if !svc.Frequency.Valid() {
		return model.NewValidationError("frequency", "unknown frequency %q", svc.Frequency)
	}
	if d := svc.TypicalDayOfMonth; d != nil && (*d < 1 || *d > 31) {
		return model.NewValidationError("typical_day_of_month", "must be between 1 and 31, got %d", *d)
	}

	for _, a := range []struct {
		field string
		value decimal.NullDecimal
	}{
		{"estimated_amount", svc.EstimatedAmount},
		{"min_amount", svc.MinAmount},
		{"max_amount", svc.MaxAmount},
	} {
		if a.value.Valid && a.value.Decimal.IsNegative() {
			return model.NewValidationError(a.field, "must not be negative")
		}
	}

	if !svc.AmountVaries {
		svc.MinAmount = decimal.NullDecimal{}
		svc.MaxAmount = decimal.NullDecimal{}
	}
	if svc.MinAmount.Valid && svc.MaxAmount.Valid && svc.MinAmount.Decimal.GreaterThan(svc.MaxAmount.Decimal) {
		return model.NewValidationError("min_amount", "must not exceed max_amount")
	}

	svc.Currency = strings.ToUpper(strings.TrimSpace(svc.Currency))
	if svc.Currency == "" {
		svc.Currency = t.config.DefaultCurrency
	}
	if len(svc.Currency) != 3 {
		return model.NewValidationError("currency", "must be a three-letter code, got %q", svc.Currency)
	}

	if svc.CategoryID != nil {
		if *svc.CategoryID == "" {
			svc.CategoryID = nil
		} else if _, err := repo.GetCategory(ctx, svc.UserID, *svc.CategoryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return model.NewValidationError("category_id", "unknown category %q", *svc.CategoryID)
			}
			return fmt.Errorf("failed to load category %s: %w", *svc.CategoryID, err)
		}
	}

	svc.NormalizedName = normalizedKey(svc.Name)
	return nil
}

// validateStatus rejects the derived due-window statuses.
func validateStatus(status model.ServiceStatus) error {
	if !status.UserSettable() {
		return model.NewValidationError("status", "must be one of active, paused, cancelled; got %q", status)
	}
	return nil
}

// normalizedKey falls back to the lowercased name when normalisation strips
// everything (a name made only of digits or boilerplate).
func normalizedKey(name string) string {
	if key := normalizer.Normalize(name); key != "" {
		return key
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// checkDuplicate returns a DuplicateServiceError when another live service of
// the user already owns svc's normalized name.
func checkDuplicate(ctx context.Context, repo storage.Repository, svc *model.RecurringService) error {
	if svc.Status == model.StatusCancelled {
		return nil
	}
	existing, err := repo.FindServiceByNormalizedName(ctx, svc.UserID, svc.NormalizedName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check for duplicate service: %w", err)
	case existing.ID == svc.ID:
		return nil
	}
	return &model.DuplicateServiceError{
		Name:           svc.Name,
		NormalizedName: svc.NormalizedName,
		ExistingID:     existing.ID,
	}
}

// conflictAsDuplicate maps a storage conflict on a service write, which only
// the live-name index can raise, to a DuplicateServiceError.
func conflictAsDuplicate(svc *model.RecurringService, err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return &model.DuplicateServiceError{Name: svc.Name, NormalizedName: svc.NormalizedName}
	}
	return err
}
