package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/schedule"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// GetUpcomingPayments returns realized and predicted payments from today to
// monthsAhead months out.
func (t *Tracker) GetUpcomingPayments(ctx context.Context, userID string, monthsAhead int) ([]PaymentView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if monthsAhead < 1 || monthsAhead > t.config.MaxMonthsAhead {
		return nil, model.NewValidationError("months", "must be between 1 and %d, got %d", t.config.MaxMonthsAhead, monthsAhead)
	}
	today := t.clock.Today()
	return t.paymentsBetween(ctx, userID, today, schedule.AddMonths(today, monthsAhead))
}

// GetMonthPayments returns realized and predicted payments for one calendar month.
func (t *Tracker) GetMonthPayments(ctx context.Context, userID string, year, month int) ([]PaymentView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, model.NewValidationError("month", "must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return nil, model.NewValidationError("year", "out of range: %d", year)
	}
	from, to := schedule.MonthBounds(year, time.Month(month))
	return t.paymentsBetween(ctx, userID, from, to)
}

// paymentsBetween merges the realized ledger with projected occurrences in
// [from, to]. A projected date is dropped when the same service already has
// a realized payment within the frequency's tolerance of it.
func (t *Tracker) paymentsBetween(ctx context.Context, userID string, from, to civil.Date) ([]PaymentView, error) {
	services, err := t.repo.ListServices(ctx, userID, storage.ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	// Realized payments just outside the window can still cover a projection
	// inside it.
	slack := 0
	for _, f := range model.Frequencies {
		if tol := t.config.Detector.Tolerance(f); tol > slack {
			slack = tol
		}
	}
	wideFrom, wideTo := from.AddDays(-slack), to.AddDays(slack)
	realized, err := t.repo.ListPayments(ctx, userID, storage.PaymentFilter{From: &wideFrom, To: &wideTo})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	byService := make(map[string][]civil.Date)
	names := make(map[string]string, len(services))
	for _, svc := range services {
		names[svc.ID] = svc.Name
	}

	views := make([]PaymentView, 0)
	for _, p := range realized {
		if p.IsPredicted {
			continue
		}
		byService[p.ServiceID] = append(byService[p.ServiceID], p.PaymentDate)
		if p.PaymentDate.Before(from) || p.PaymentDate.After(to) {
			continue
		}
		views = append(views, PaymentView{ServicePayment: p, ServiceName: names[p.ServiceID]})
	}

	for _, svc := range services {
		if svc.Status.Sticky() || svc.NextExpectedDate == nil || !svc.Frequency.Valid() {
			continue
		}
		tolerance := t.config.Detector.Tolerance(svc.Frequency)
		for _, d := range schedule.Occurrences(svc.Frequency, svc.AnchorDay(), *svc.NextExpectedDate, from, to) {
			if covered(byService[svc.ID], d, tolerance) {
				continue
			}
			views = append(views, predictedPayment(svc, d))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.PaymentDate != b.PaymentDate {
			return a.PaymentDate.Before(b.PaymentDate)
		}
		if an, bn := strings.ToLower(a.ServiceName), strings.ToLower(b.ServiceName); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
	return views, nil
}

func covered(realized []civil.Date, d civil.Date, tolerance int) bool {
	for _, r := range realized {
		gap := schedule.DaysBetween(r, d)
		if gap < 0 {
			gap = -gap
		}
		if gap <= tolerance {
			return true
		}
	}
	return false
}

func predictedPayment(svc model.RecurringService, d civil.Date) PaymentView {
	amount := decimal.Zero
	if svc.EstimatedAmount.Valid {
		amount = svc.EstimatedAmount.Decimal
	}
	return PaymentView{
		ServicePayment: model.ServicePayment{
			ID:          fmt.Sprintf("predicted:%s:%s", svc.ID, d),
			UserID:      svc.UserID,
			ServiceID:   svc.ID,
			PaymentDate: d,
			Amount:      amount,
			Currency:    svc.Currency,
			Status:      model.PaymentPending,
			IsPredicted: true,
		},
		ServiceName: svc.Name,
	}
}
