package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

func TestLink_ScoresAndReconciles(t *testing.T) {
	// Arrange
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))

	// Act
	payment, err := tr.Link(ctx, testUser, svc.ID, "tx-1", "", nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, model.MatchedManual, payment.MatchedBy)
	assert.Equal(t, model.PaymentPaid, payment.Status)
	assert.False(t, payment.IsPredicted)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("15.49")))
	assert.Equal(t, "USD", payment.Currency)
	require.NotNil(t, payment.MatchConfidence)
	// Text and amount agree fully; the date is a month off the projection.
	assert.Equal(t, 75, *payment.MatchConfidence)

	view, err := tr.GetService(ctx, testUser, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 5), *view.FirstPaymentDate)
	assert.Equal(t, date(2024, 3, 5), *view.LastPaymentDate)
	assert.Equal(t, date(2024, 4, 5), *view.NextExpectedDate)
	assert.Equal(t, model.StatusUpToDate, view.Status)
	assert.Len(t, view.Payments, 1)
}

func TestLink_ExplicitConfidence(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))

	payment, err := tr.Link(ctx, testUser, svc.ID, "tx-1", model.MatchedAuto, intPtr(91))

	require.NoError(t, err)
	assert.Equal(t, 91, *payment.MatchConfidence)
	assert.Equal(t, model.MatchedAuto, payment.MatchedBy)
}

func TestLink_AlreadyLinkedLeavesStateUntouched(t *testing.T) {
	// Arrange
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	netflix, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	hulu, err := tr.CreateService(ctx, testUser, monthlyInput("Hulu", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))
	first, err := tr.Link(ctx, testUser, netflix.ID, "tx-1", model.MatchedManual, nil)
	require.NoError(t, err)
	before, err := tr.GetService(ctx, testUser, hulu.ID)
	require.NoError(t, err)

	// Act
	_, err = tr.Link(ctx, testUser, hulu.ID, "tx-1", model.MatchedManual, nil)

	// Assert
	var already *model.AlreadyLinkedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "tx-1", already.TransactionID)
	assert.Equal(t, netflix.ID, already.ServiceID)
	assert.Equal(t, first.ID, already.PaymentID)
	assert.Equal(t, 1, repo.CreatePaymentCalls)

	after, err := tr.GetService(ctx, testUser, hulu.ID)
	require.NoError(t, err)
	assert.Equal(t, before.RecurringService, after.RecurringService)
	assert.Empty(t, after.Payments)
}

func TestLink_ConcurrentLinksOneWinner(t *testing.T) {
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	netflix, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	hulu, err := tr.CreateService(ctx, testUser, monthlyInput("Hulu", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))

	serviceIDs := []string{netflix.ID, hulu.ID}
	errs := make([]error, len(serviceIDs))
	var wg sync.WaitGroup
	for i, id := range serviceIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = tr.Link(ctx, testUser, id, "tx-1", model.MatchedManual, nil)
		}(i, id)
	}
	wg.Wait()

	linked, rejected := 0, 0
	winner := ""
	for i, err := range errs {
		var already *model.AlreadyLinkedError
		switch {
		case err == nil:
			linked++
			winner = serviceIDs[i]
		case errors.As(err, &already):
			rejected++
			assert.Equal(t, "tx-1", already.TransactionID)
		default:
			t.Errorf("unexpected link error: %v", err)
		}
	}
	assert.Equal(t, 1, linked)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, repo.CreatePaymentCalls)

	total := 0
	for _, id := range serviceIDs {
		payments, err := tr.GetServicePayments(ctx, testUser, id, 0, false)
		require.NoError(t, err)
		total += len(payments)
		if id == winner {
			require.Len(t, payments, 1)
			require.NotNil(t, payments[0].TransactionID)
			assert.Equal(t, "tx-1", *payments[0].TransactionID)
		}
	}
	assert.Equal(t, 1, total)
}

func TestLink_Errors(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))

	t.Run("unknown service", func(t *testing.T) {
		_, err := tr.Link(ctx, testUser, "missing", "tx-1", "", nil)
		var nf *model.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "service", nf.Resource)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := tr.Link(ctx, testUser, svc.ID, "tx-missing", "", nil)
		var nf *model.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "transaction", nf.Resource)
	})

	t.Run("other user's transaction", func(t *testing.T) {
		_, err := tr.Link(ctx, "user-2", svc.ID, "tx-1", "", nil)
		var nf *model.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		_, err := tr.Link(ctx, testUser, svc.ID, "tx-1", "", intPtr(101))
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "match_confidence", verr.Field)
	})

	t.Run("unknown matched_by", func(t *testing.T) {
		_, err := tr.Link(ctx, testUser, svc.ID, "tx-1", "robot", nil)
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestUnlink_RecomputesDates(t *testing.T) {
	// Arrange
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 2, 5))
	importTx(t, tr, "tx-2", "NETFLIX.COM", "-15.49", date(2024, 3, 5))
	_, err = tr.Link(ctx, testUser, svc.ID, "tx-1", "", nil)
	require.NoError(t, err)
	latest, err := tr.Link(ctx, testUser, svc.ID, "tx-2", "", nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, tr.Unlink(ctx, testUser, latest.ID))

	// Assert
	view, err := tr.GetService(ctx, testUser, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 5), *view.LastPaymentDate)
	assert.Equal(t, date(2024, 3, 5), *view.NextExpectedDate)
	assert.Equal(t, model.StatusOverdue, view.Status)

	tx, err := tr.repo.GetTransaction(ctx, testUser, "tx-2")
	require.NoError(t, err)
	assert.False(t, tx.Linked)

	var nf *model.NotFoundError
	assert.ErrorAs(t, tr.Unlink(ctx, testUser, latest.ID), &nf)
}

func TestFindPotentialMatches(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	netflix, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	_, err = tr.CreateService(ctx, testUser, monthlyInput("Spotify", "9.99", 12))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 4, 5))

	matches, err := tr.FindPotentialMatches(ctx, testUser, "tx-1")

	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, netflix.ID, matches[0].ServiceID)
	assert.Equal(t, 100, matches[0].Confidence)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Confidence, tr.scorer.MinConfidence())
	}

	_, err = tr.FindPotentialMatches(ctx, testUser, "missing")
	var nf *model.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
