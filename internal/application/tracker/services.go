package tracker

import (
	"context"
	"fmt"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/reconciler"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// CreateService registers a service by hand.
func (t *Tracker) CreateService(ctx context.Context, userID string, in ServiceInput) (*model.RecurringService, error) {
	status := in.Status
	if status == "" {
		status = model.StatusActive
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	now := t.now()
	svc := &model.RecurringService{
		ID:                t.newID(),
		UserID:            userID,
		Name:              in.Name,
		CategoryID:        in.CategoryID,
		Frequency:         in.Frequency,
		TypicalDayOfMonth: in.TypicalDayOfMonth,
		EstimatedAmount:   in.EstimatedAmount,
		AmountVaries:      in.AmountVaries,
		MinAmount:         in.MinAmount,
		MaxAmount:         in.MaxAmount,
		Currency:          in.Currency,
		Status:            status,
		Notes:             in.Notes,
		FirstPaymentDate:  in.FirstPaymentDate,
		CreatedOn:         t.clock.Today(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := t.write(ctx, userID, func(repo storage.Repository) error {
		if err := t.validateService(ctx, repo, svc); err != nil {
			return err
		}
		if err := checkDuplicate(ctx, repo, svc); err != nil {
			return err
		}

		reconciler.Reconcile(*svc, nil, t.clock.Today()).Apply(svc)

		if err := repo.CreateService(ctx, svc); err != nil {
			return conflictAsDuplicate(svc, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("created service",
		"user_id", userID,
		"service_id", svc.ID,
		"name", svc.Name,
		"frequency", svc.Frequency,
		"status", svc.Status)
	return svc, nil
}

// UpdateService applies a partial update and re-derives the schedule.
func (t *Tracker) UpdateService(ctx context.Context, userID, id string, patch ServicePatch) (*model.RecurringService, error) {
	if patch.Status != nil {
		if err := validateStatus(*patch.Status); err != nil {
			return nil, err
		}
	}

	var updated *model.RecurringService
	err := t.write(ctx, userID, func(repo storage.Repository) error {
		svc, err := loadService(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		before := *svc

		applyPatch(svc, patch)
		if err := t.validateService(ctx, repo, svc); err != nil {
			return err
		}

		scheduleChanged := svc.Frequency != before.Frequency || !sameDay(svc.TypicalDayOfMonth, before.TypicalDayOfMonth)
		if scheduleChanged {
			svc.NextExpectedDate = nil
		}
		// Leaving paused/cancelled hands the status back to the reconciler.
		if patch.Status != nil && before.Status.Sticky() && !svc.Status.Sticky() {
			svc.NextExpectedDate = nil
		}

		renamed := svc.NormalizedName != before.NormalizedName
		revived := before.Status == model.StatusCancelled && svc.Status != model.StatusCancelled
		if renamed || revived {
			if err := checkDuplicate(ctx, repo, svc); err != nil {
				return err
			}
		}

		if _, err := t.reconcileInPlace(ctx, repo, svc); err != nil {
			return err
		}
		svc.UpdatedAt = t.now()
		if err := repo.UpdateService(ctx, svc); err != nil {
			return conflictAsDuplicate(svc, err)
		}
		updated = svc
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("updated service",
		"user_id", userID,
		"service_id", id,
		"status", updated.Status)
	return updated, nil
}

// DeleteService removes a service together with its payments.
func (t *Tracker) DeleteService(ctx context.Context, userID, id string) error {
	err := t.write(ctx, userID, func(repo storage.Repository) error {
		if err := repo.DeleteService(ctx, userID, id); err != nil {
			return notFound("service", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.logger.Info("deleted service", "user_id", userID, "service_id", id)
	return nil
}

// GetService returns one service with its realized payments.
func (t *Tracker) GetService(ctx context.Context, userID, id string) (*ServiceView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	svc, err := loadService(ctx, t.repo, userID, id)
	if err != nil {
		return nil, err
	}
	payments, err := t.repo.ListPayments(ctx, userID, storage.PaymentFilter{ServiceID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for service %s: %w", id, err)
	}
	return &ServiceView{RecurringService: *svc, Payments: payments}, nil
}

// GetServices lists the user's services ordered by name.
func (t *Tracker) GetServices(ctx context.Context, userID string, filter StatusFilter, includePayments bool) ([]ServiceView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	for _, s := range filter {
		if !s.Valid() {
			return nil, model.NewValidationError("status", "unknown status %q", s)
		}
	}

	services, err := t.repo.ListServices(ctx, userID, storage.ServiceFilter{Statuses: filter})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	views := make([]ServiceView, 0, len(services))
	for _, svc := range services {
		view := ServiceView{RecurringService: svc}
		if includePayments {
			payments, err := t.repo.ListPayments(ctx, userID, storage.PaymentFilter{ServiceID: svc.ID})
			if err != nil {
				return nil, fmt.Errorf("failed to load payments for service %s: %w", svc.ID, err)
			}
			view.Payments = payments
		}
		views = append(views, view)
	}
	return views, nil
}

// GetServicePayments returns the newest payments of a service. With
// includeTransaction each payment carries its funding transaction.
func (t *Tracker) GetServicePayments(ctx context.Context, userID, serviceID string, limit int, includeTransaction bool) ([]PaymentView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, model.NewValidationError("limit", "must not be negative")
	}
	svc, err := loadService(ctx, t.repo, userID, serviceID)
	if err != nil {
		return nil, err
	}

	payments, err := t.repo.ListPayments(ctx, userID, storage.PaymentFilter{ServiceID: serviceID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		view := PaymentView{ServicePayment: p, ServiceName: svc.Name}
		if includeTransaction && p.TransactionID != nil {
			tx, err := t.repo.GetTransaction(ctx, userID, *p.TransactionID)
			if err != nil {
				// The transaction store is external; a vanished row is not fatal.
				t.logger.Warn("payment references missing transaction",
					"payment_id", p.ID,
					"transaction_id", *p.TransactionID,
					"error", err)
			} else {
				view.Transaction = tx
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func applyPatch(svc *model.RecurringService, p ServicePatch) {
	if p.Name != nil {
		svc.Name = *p.Name
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			svc.CategoryID = nil
		} else {
			id := *p.CategoryID
			svc.CategoryID = &id
		}
	}
	if p.Frequency != nil {
		svc.Frequency = *p.Frequency
	}
	if p.TypicalDayOfMonth != nil {
		if *p.TypicalDayOfMonth == 0 {
			svc.TypicalDayOfMonth = nil
		} else {
			day := *p.TypicalDayOfMonth
			svc.TypicalDayOfMonth = &day
		}
	}
	if p.EstimatedAmount != nil {
		svc.EstimatedAmount = *p.EstimatedAmount
	}
	if p.AmountVaries != nil {
		svc.AmountVaries = *p.AmountVaries
	}
	if p.MinAmount != nil {
		svc.MinAmount = *p.MinAmount
	}
	if p.MaxAmount != nil {
		svc.MaxAmount = *p.MaxAmount
	}
	if p.Currency != nil {
		svc.Currency = *p.Currency
	}
	if p.Status != nil {
		svc.Status = *p.Status
	}
	if p.Notes != nil {
		svc.Notes = *p.Notes
	}
}

func sameDay(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
