package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

func TestCreateService_ProjectsFromCreationDate(t *testing.T) {
	// Arrange
	tr, _ := newTestTracker(t, date(2024, 3, 10))

	// Act
	svc, err := tr.CreateService(context.Background(), testUser, monthlyInput("Netflix", "15.49", 15))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "id-1", svc.ID)
	assert.Equal(t, "netflix", svc.NormalizedName)
	assert.Equal(t, "USD", svc.Currency)
	require.NotNil(t, svc.NextExpectedDate)
	assert.Equal(t, date(2024, 3, 15), *svc.NextExpectedDate)
	assert.Equal(t, model.StatusDueSoon, svc.Status)
	assert.Nil(t, svc.LastPaymentDate)
	assert.Nil(t, svc.AutoDetectionConfidence)
}

func TestCreateService_AnchorsToClockDateNotWallClock(t *testing.T) {
	// Arrange: the clock's local day is Mar 10 while UTC has already rolled over.
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	tr.now = func() time.Time { return time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	// Act
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Rent", "1200", 10))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 10), svc.CreatedOn)
	require.NotNil(t, svc.NextExpectedDate)
	assert.Equal(t, date(2024, 3, 10), *svc.NextExpectedDate)
	assert.Equal(t, model.StatusDueSoon, svc.Status)

	result, err := tr.RecalculateAllServices(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
}

func TestCreateService_SeededFirstPaymentDate(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	first := date(2024, 1, 20)
	in := monthlyInput("Gym", "40", 20)
	in.FirstPaymentDate = &first

	svc, err := tr.CreateService(context.Background(), testUser, in)

	require.NoError(t, err)
	require.NotNil(t, svc.FirstPaymentDate)
	assert.Equal(t, first, *svc.FirstPaymentDate)
	assert.Equal(t, date(2024, 2, 20), *svc.NextExpectedDate)
	assert.Equal(t, model.StatusOverdue, svc.Status)
}

func TestCreateService_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(in *ServiceInput)
		field string
	}{
		{"empty name", func(in *ServiceInput) { in.Name = "  " }, "name"},
		{"unknown frequency", func(in *ServiceInput) { in.Frequency = "daily" }, "frequency"},
		{"day out of range", func(in *ServiceInput) { in.TypicalDayOfMonth = intPtr(32) }, "typical_day_of_month"},
		{"negative estimate", func(in *ServiceInput) { in.EstimatedAmount = amount("-1") }, "estimated_amount"},
		{"min above max", func(in *ServiceInput) {
			in.AmountVaries = true
			in.MinAmount = amount("20")
			in.MaxAmount = amount("10")
		}, "min_amount"},
		{"derived status", func(in *ServiceInput) { in.Status = model.StatusOverdue }, "status"},
		{"bad currency", func(in *ServiceInput) { in.Currency = "dollars" }, "currency"},
		{"unknown category", func(in *ServiceInput) {
			id := "cat-missing"
			in.CategoryID = &id
		}, "category_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, repo := newTestTracker(t, date(2024, 3, 10))
			in := monthlyInput("Netflix", "15.49", 5)
			tt.edit(&in)

			_, err := tr.CreateService(context.Background(), testUser, in)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, repo.CreateServiceCalls)
		})
	}
}

func TestCreateService_FixedAmountClearsRange(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	in := monthlyInput("Power", "80", 12)
	in.MinAmount = amount("70")
	in.MaxAmount = amount("90")

	svc, err := tr.CreateService(context.Background(), testUser, in)

	require.NoError(t, err)
	assert.False(t, svc.MinAmount.Valid)
	assert.False(t, svc.MaxAmount.Valid)
}

func TestCreateService_KnownCategory(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	cat, err := tr.UpsertCategory(ctx, testUser, model.Category{Name: "Streaming"})
	require.NoError(t, err)

	in := monthlyInput("Netflix", "15.49", 5)
	in.CategoryID = &cat.ID
	svc, err := tr.CreateService(ctx, testUser, in)

	require.NoError(t, err)
	require.NotNil(t, svc.CategoryID)
	assert.Equal(t, cat.ID, *svc.CategoryID)
}

func TestCreateService_Duplicate(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()

	first, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)

	_, err = tr.CreateService(ctx, testUser, monthlyInput("NETFLIX", "15.49", 5))

	var dup *model.DuplicateServiceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)

	// Another user may track the same name.
	_, err = tr.CreateService(ctx, "user-2", monthlyInput("Netflix", "15.49", 5))
	assert.NoError(t, err)
}

func TestCreateService_CancelledNameCanBeReused(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	first, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)

	cancelled := model.StatusCancelled
	_, err = tr.UpdateService(ctx, testUser, first.ID, ServicePatch{Status: &cancelled})
	require.NoError(t, err)

	_, err = tr.CreateService(ctx, testUser, monthlyInput("Netflix", "17.99", 5))
	require.NoError(t, err)

	// Reviving the cancelled one now collides.
	active := model.StatusActive
	_, err = tr.UpdateService(ctx, testUser, first.ID, ServicePatch{Status: &active})
	var dup *model.DuplicateServiceError
	assert.ErrorAs(t, err, &dup)
}

func TestUpdateService_FrequencyChangeReprojects(t *testing.T) {
	// Arrange
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Farm Box", "30", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "FARM BOX", "-30.00", date(2024, 3, 5))
	_, err = tr.Link(ctx, testUser, svc.ID, "tx-1", model.MatchedManual, nil)
	require.NoError(t, err)

	// Act
	weekly := model.FrequencyWeekly
	updated, err := tr.UpdateService(ctx, testUser, svc.ID, ServicePatch{Frequency: &weekly})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, updated.NextExpectedDate)
	assert.Equal(t, date(2024, 3, 12), *updated.NextExpectedDate)
	assert.Equal(t, model.StatusDueSoon, updated.Status)
}

func TestUpdateService_PauseAndResume(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Gym", "40", 1))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 4, 1), *svc.NextExpectedDate)

	paused := model.StatusPaused
	got, err := tr.UpdateService(ctx, testUser, svc.ID, ServicePatch{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, got.Status)
	assert.Equal(t, date(2024, 4, 1), *got.NextExpectedDate)

	active := model.StatusActive
	got, err = tr.UpdateService(ctx, testUser, svc.ID, ServicePatch{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUpToDate, got.Status)
	assert.Equal(t, date(2024, 4, 1), *got.NextExpectedDate)
}

func TestUpdateService_PatchClearsFields(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)

	zero := 0
	noAmount := decimal.NullDecimal{}
	notes := "family plan"
	got, err := tr.UpdateService(ctx, testUser, svc.ID, ServicePatch{
		TypicalDayOfMonth: &zero,
		EstimatedAmount:   &noAmount,
		Notes:             &notes,
	})

	require.NoError(t, err)
	assert.Nil(t, got.TypicalDayOfMonth)
	assert.False(t, got.EstimatedAmount.Valid)
	assert.Equal(t, "family plan", got.Notes)
	// Without an anchor the schedule restarts from the creation date.
	assert.Equal(t, date(2024, 3, 10), *got.NextExpectedDate)
}

func TestUpdateService_RenameIntoDuplicate(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	_, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	other, err := tr.CreateService(ctx, testUser, monthlyInput("Hulu", "7.99", 5))
	require.NoError(t, err)

	name := "netflix"
	_, err = tr.UpdateService(ctx, testUser, other.ID, ServicePatch{Name: &name})

	var dup *model.DuplicateServiceError
	require.ErrorAs(t, err, &dup)

	view, err := tr.GetService(ctx, testUser, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hulu", view.Name)
}

func TestUpdateService_NotFound(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	name := "x"

	_, err := tr.UpdateService(context.Background(), testUser, "missing", ServicePatch{Name: &name})

	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "service", nf.Resource)
}

func TestDeleteService_CascadesPayments(t *testing.T) {
	// Arrange
	tr, repo := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))
	payment, err := tr.Link(ctx, testUser, svc.ID, "tx-1", model.MatchedManual, nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, tr.DeleteService(ctx, testUser, svc.ID))

	// Assert
	_, err = repo.GetPayment(ctx, testUser, payment.ID)
	assert.Error(t, err)
	tx, err := repo.GetTransaction(ctx, testUser, "tx-1")
	require.NoError(t, err)
	assert.False(t, tx.Linked)

	var nf *model.NotFoundError
	assert.ErrorAs(t, tr.DeleteService(ctx, testUser, svc.ID), &nf)
}

func TestGetServices_FilterAndPayments(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	netflix, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	_, err = tr.CreateService(ctx, testUser, monthlyInput("Gym", "40", 1))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 3, 5))
	_, err = tr.Link(ctx, testUser, netflix.ID, "tx-1", "", nil)
	require.NoError(t, err)

	all, err := tr.GetServices(ctx, testUser, nil, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Gym", all[0].Name)
	assert.Empty(t, all[0].Payments)
	assert.Len(t, all[1].Payments, 1)

	upToDate, err := tr.GetServices(ctx, testUser, StatusFilter{model.StatusUpToDate}, false)
	require.NoError(t, err)
	assert.Len(t, upToDate, 2)

	_, err = tr.GetServices(ctx, testUser, StatusFilter{"bogus"}, false)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetServicePayments_IncludesTransaction(t *testing.T) {
	tr, _ := newTestTracker(t, date(2024, 3, 10))
	ctx := context.Background()
	svc, err := tr.CreateService(ctx, testUser, monthlyInput("Netflix", "15.49", 5))
	require.NoError(t, err)
	importTx(t, tr, "tx-1", "NETFLIX.COM", "-15.49", date(2024, 2, 5))
	importTx(t, tr, "tx-2", "NETFLIX.COM", "-15.49", date(2024, 3, 5))
	for _, id := range []string{"tx-1", "tx-2"} {
		_, err = tr.Link(ctx, testUser, svc.ID, id, model.MatchedManual, nil)
		require.NoError(t, err)
	}

	payments, err := tr.GetServicePayments(ctx, testUser, svc.ID, 1, true)

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, date(2024, 3, 5), payments[0].PaymentDate)
	assert.Equal(t, "Netflix", payments[0].ServiceName)
	require.NotNil(t, payments[0].Transaction)
	assert.Equal(t, "tx-2", payments[0].Transaction.ID)
	assert.True(t, payments[0].Transaction.Linked)
}
