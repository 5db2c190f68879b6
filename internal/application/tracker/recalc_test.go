package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

func TestRecalculateAllServices_Idempotent(t *testing.T) {
	// Arrange
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 15))
	require.NoError(t, err)
	insertPayment(t, repo, "p-1", svc.ID, date(2024, 3, 14))

	// Act
	first, err := tr.RecalculateAllServices(ctx, testUser)
	require.NoError(t, err)
	writes := repo.UpdateServiceCalls
	second, err := tr.RecalculateAllServices(ctx, testUser)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 1, first.Updated)
	assert.Equal(t, 1, second.Processed)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, writes, repo.UpdateServiceCalls)

	view, err := tr.GetService(ctx, testUser, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 14), *view.LastPaymentDate)
	assert.Equal(t, date(2024, 4, 15), *view.NextExpectedDate)
	assert.Equal(t, model.StatusUpToDate, view.Status)
}

func TestRecalculateAllServices_ReportsFailuresAndContinues(t *testing.T) {
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	adobe, err := tr.CreateService(ctx, testUser, monthlyInput("Adobe", "54.99", 15))
	require.NoError(t, err)
	netflix, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 15))
	require.NoError(t, err)
	insertPayment(t, repo, "p-1", adobe.ID, date(2024, 3, 14))
	insertPayment(t, repo, "p-2", netflix.ID, date(2024, 3, 14))
	repo.UpdateServiceErrFor[adobe.ID] = errors.New("disk full")

	result, err := tr.RecalculateAllServices(ctx, testUser)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, adobe.ID, result.Failures[0].ID)
	assert.Contains(t, result.Failures[0].Error, "disk full")

	view, err := tr.GetService(ctx, testUser, netflix.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 4, 15), *view.NextExpectedDate)
}

func TestRecalculateAllServices_KeepsPausedStatus(t *testing.T) {
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	in := monthlyInput("Gym", "40", 15)
	in.Status = model.StatusPaused
	svc, err := tr.CreateService(ctx, testUser, in)
	require.NoError(t, err)
	insertPayment(t, repo, "p-1", svc.ID, date(2024, 3, 1))

	_, err = tr.RecalculateAllServices(ctx, testUser)
	require.NoError(t, err)

	view, err := tr.GetService(ctx, testUser, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, view.Status)
	assert.Nil(t, view.NextExpectedDate)
	assert.Equal(t, date(2024, 3, 1), *view.LastPaymentDate)
}

func TestRecalculateAllServices_ListFailure(t *testing.T) {
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	repo.ListServicesErr = errors.New("locked")

	_, err := tr.RecalculateAllServices(context.Background(), testUser)

	assert.ErrorContains(t, err, "locked")
}
