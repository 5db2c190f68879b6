// Package reconciler derives a service's lifecycle status and schedule from
// its payment history. It is a pure function of its inputs and never fails.
package reconciler

import (
	"cloud.google.com/go/civil"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/schedule"
)

// Result is the derived state for one service.
type Result struct {
	Status           model.ServiceStatus
	NextExpectedDate *civil.Date
	FirstPaymentDate *civil.Date
	LastPaymentDate  *civil.Date

	// Changed is true when any field differs from the service passed in.
	Changed bool
}

// Apply copies the derived fields onto svc.
func (r Result) Apply(svc *model.RecurringService) {
	svc.Status = r.Status
	svc.NextExpectedDate = r.NextExpectedDate
	svc.FirstPaymentDate = r.FirstPaymentDate
	svc.LastPaymentDate = r.LastPaymentDate
}

// Reconcile computes status and dates for svc from its realized payments.
//
// First and last payment dates always follow the realized payments. Paused
// and cancelled services keep their status and next expected date. Otherwise
// the next expected date is projected from the latest realized payment, or
// from a seeded first_payment_date, or from the creation date; with none of
// those the status stays active.
func Reconcile(svc model.RecurringService, payments []model.ServicePayment, today civil.Date) Result {
	first, last := paymentBounds(svc.ID, payments)
	if first == nil && svc.LastPaymentDate == nil {
		// A first_payment_date without any payment history is a user-supplied
		// start date and survives until a payment supersedes it.
		first = copyDate(svc.FirstPaymentDate)
	}

	res := Result{
		Status:           model.StatusActive,
		FirstPaymentDate: first,
		LastPaymentDate:  last,
	}

	switch {
	case svc.Status.Sticky():
		res.Status = svc.Status
		res.NextExpectedDate = copyDate(svc.NextExpectedDate)
	case svc.Frequency.Valid():
		anchor := svc.AnchorDay()
		var next *civil.Date
		switch {
		case last != nil:
			d := schedule.NextDate(svc.Frequency, anchor, *last)
			next = &d
		case first != nil:
			d := schedule.NextDate(svc.Frequency, anchor, *first)
			next = &d
		case svc.CreatedOn.IsValid():
			d := schedule.FirstOnOrAfter(svc.Frequency, anchor, svc.CreatedOn)
			next = &d
		}
		if next != nil {
			res.NextExpectedDate = next
			res.Status = schedule.ClassifyDueWindow(today, *next).Status()
		}
	}

	res.Changed = res.Status != svc.Status ||
		!sameDate(res.NextExpectedDate, svc.NextExpectedDate) ||
		!sameDate(res.FirstPaymentDate, svc.FirstPaymentDate) ||
		!sameDate(res.LastPaymentDate, svc.LastPaymentDate)

	return res
}

// paymentBounds returns the earliest and latest realized payment dates.
func paymentBounds(serviceID string, payments []model.ServicePayment) (*civil.Date, *civil.Date) {
	var first, last *civil.Date
	for _, p := range payments {
		if p.IsPredicted || p.TransactionID == nil {
			continue
		}
		if serviceID != "" && p.ServiceID != "" && p.ServiceID != serviceID {
			continue
		}
		d := p.PaymentDate
		if first == nil || d.Before(*first) {
			first = copyDate(&d)
		}
		if last == nil || d.After(*last) {
			last = copyDate(&d)
		}
	}
	return first, last
}

func copyDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func sameDate(a, b *civil.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
