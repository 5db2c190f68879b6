package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	tmpDB := createTempDB(t)
	t.Cleanup(func() { os.Remove(tmpDB) })

	store, err := NewStorage(tmpDB, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testService(id, name, key string) *model.RecurringService {
	day := 5
	next := civil.Date{Year: 2024, Month: time.March, Day: 5}
	confidence := 92
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	return &model.RecurringService{
		ID:                      id,
		UserID:                  "user-1",
		Name:                    name,
		NormalizedName:          key,
		Frequency:               model.FrequencyMonthly,
		TypicalDayOfMonth:       &day,
		EstimatedAmount:         decimal.NewNullDecimal(decimal.RequireFromString("15.49")),
		Currency:                "USD",
		Status:                  model.StatusUpToDate,
		NextExpectedDate:        &next,
		AutoDetectionConfidence: &confidence,
		CreatedOn:               civil.Date{Year: 2024, Month: time.February, Day: 10},
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func testTransaction(id string, d civil.Date, amount string) *model.Transaction {
	return &model.Transaction{
		ID:          id,
		UserID:      "user-1",
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Description: "NETFLIX.COM",
	}
}

func testPayment(id, serviceID, txID string, d civil.Date) *model.ServicePayment {
	confidence := 88
	return &model.ServicePayment{
		ID:              id,
		UserID:          "user-1",
		ServiceID:       serviceID,
		TransactionID:   &txID,
		PaymentDate:     d,
		Amount:          decimal.RequireFromString("15.49"),
		Currency:        "USD",
		Status:          model.PaymentPaid,
		MatchConfidence: &confidence,
		MatchedBy:       model.MatchedAuto,
		CreatedAt:       time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestStorage_ServiceRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	svc := testService("svc-1", "Netflix", "netflix")
	svc.AmountVaries = true
	svc.MinAmount = decimal.NewNullDecimal(decimal.RequireFromString("15.49"))
	svc.MaxAmount = decimal.NewNullDecimal(decimal.RequireFromString("22.99"))
	require.NoError(t, store.CreateService(ctx, svc))

	got, err := store.GetService(ctx, "user-1", "svc-1")
	require.NoError(t, err)

	assert.Equal(t, "Netflix", got.Name)
	assert.Equal(t, "netflix", got.NormalizedName)
	assert.Equal(t, model.FrequencyMonthly, got.Frequency)
	assert.Equal(t, model.StatusUpToDate, got.Status)
	require.NotNil(t, got.TypicalDayOfMonth)
	assert.Equal(t, 5, *got.TypicalDayOfMonth)
	assert.True(t, got.EstimatedAmount.Valid)
	assert.True(t, got.EstimatedAmount.Decimal.Equal(decimal.RequireFromString("15.49")))
	assert.True(t, got.AmountVaries)
	assert.True(t, got.MaxAmount.Decimal.Equal(decimal.RequireFromString("22.99")))
	require.NotNil(t, got.NextExpectedDate)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 5}, *got.NextExpectedDate)
	assert.Nil(t, got.FirstPaymentDate)
	assert.Nil(t, got.CategoryID)
	require.NotNil(t, got.AutoDetectionConfidence)
	assert.Equal(t, 92, *got.AutoDetectionConfidence)
	assert.True(t, svc.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 10}, got.CreatedOn)
}

func TestStorage_GetService_ScopedToUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))

	_, err := store.GetService(ctx, "user-2", "svc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetService(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_DuplicateLiveServiceConflicts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))

	err := store.CreateService(ctx, testService("svc-2", "NETFLIX", "netflix"))
	assert.ErrorIs(t, err, ErrConflict)

	// Another user may track the same name
	other := testService("svc-3", "Netflix", "netflix")
	other.UserID = "user-2"
	assert.NoError(t, store.CreateService(ctx, other))

	// A cancelled service frees its name
	cancelled, err := store.GetService(ctx, "user-1", "svc-1")
	require.NoError(t, err)
	cancelled.Status = model.StatusCancelled
	require.NoError(t, store.UpdateService(ctx, cancelled))
	assert.NoError(t, store.CreateService(ctx, testService("svc-2", "Netflix", "netflix")))
}

func TestStorage_ListServices_StatusFilter(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	a := testService("svc-a", "spotify", "spotify")
	b := testService("svc-b", "Hulu", "hulu")
	b.Status = model.StatusPaused
	c := testService("svc-c", "Apple Music", "apple music")
	c.Status = model.StatusOverdue
	for _, svc := range []*model.RecurringService{a, b, c} {
		require.NoError(t, store.CreateService(ctx, svc))
	}

	all, err := store.ListServices(ctx, "user-1", ServiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Apple Music", "Hulu", "spotify"}, []string{all[0].Name, all[1].Name, all[2].Name})

	filtered, err := store.ListServices(ctx, "user-1", ServiceFilter{
		Statuses: []model.ServiceStatus{model.StatusOverdue, model.StatusUpToDate},
	})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "svc-c", filtered[0].ID)
	assert.Equal(t, "svc-a", filtered[1].ID)

	none, err := store.ListServices(ctx, "user-2", ServiceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStorage_UpdateService_Missing(t *testing.T) {
	store := newTestStorage(t)
	err := store.UpdateService(context.Background(), testService("nope", "Netflix", "netflix"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_PaymentOneLinkPerTransaction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))
	require.NoError(t, store.CreateService(ctx, testService("svc-2", "Hulu", "hulu")))

	d := civil.Date{Year: 2024, Month: time.February, Day: 5}
	require.NoError(t, store.CreatePayment(ctx, testPayment("p-1", "svc-1", "tx-1", d)))

	err := store.CreatePayment(ctx, testPayment("p-2", "svc-2", "tx-1", d))
	assert.ErrorIs(t, err, ErrConflict)

	found, err := store.GetPaymentByTransaction(ctx, "user-1", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", found.ID)
	assert.Equal(t, "svc-1", found.ServiceID)
	assert.Equal(t, model.MatchedAuto, found.MatchedBy)
	require.NotNil(t, found.MatchConfidence)
	assert.Equal(t, 88, *found.MatchConfidence)
}

func TestStorage_ListPayments_OrderAndLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))

	for i, day := range []int{5, 20, 12} {
		d := civil.Date{Year: 2024, Month: time.January, Day: day}
		p := testPayment("p-"+string(rune('a'+i)), "svc-1", "tx-"+string(rune('a'+i)), d)
		require.NoError(t, store.CreatePayment(ctx, p))
	}

	payments, err := store.ListPayments(ctx, "user-1", PaymentFilter{ServiceID: "svc-1"})
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, 20, payments[0].PaymentDate.Day)
	assert.Equal(t, 12, payments[1].PaymentDate.Day)
	assert.Equal(t, 5, payments[2].PaymentDate.Day)

	limited, err := store.ListPayments(ctx, "user-1", PaymentFilter{ServiceID: "svc-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	from := civil.Date{Year: 2024, Month: time.January, Day: 6}
	to := civil.Date{Year: 2024, Month: time.January, Day: 12}
	window, err := store.ListPayments(ctx, "user-1", PaymentFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, 12, window[0].PaymentDate.Day)
}

func TestStorage_DeleteServiceCascadesPayments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))
	d := civil.Date{Year: 2024, Month: time.February, Day: 5}
	require.NoError(t, store.CreatePayment(ctx, testPayment("p-1", "svc-1", "tx-1", d)))

	require.NoError(t, store.DeleteService(ctx, "user-1", "svc-1"))

	_, err := store.GetPayment(ctx, "user-1", "p-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteService(ctx, "user-1", "svc-1"), ErrNotFound)
}

func TestStorage_TransactionsLinkedFlag(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateService(ctx, testService("svc-1", "Netflix", "netflix")))

	jan := civil.Date{Year: 2024, Month: time.January, Day: 5}
	feb := civil.Date{Year: 2024, Month: time.February, Day: 5}
	require.NoError(t, store.UpsertTransaction(ctx, testTransaction("tx-1", jan, "-15.49")))
	require.NoError(t, store.UpsertTransaction(ctx, testTransaction("tx-2", feb, "-15.49")))
	require.NoError(t, store.CreatePayment(ctx, testPayment("p-1", "svc-1", "tx-1", jan)))

	tx1, err := store.GetTransaction(ctx, "user-1", "tx-1")
	require.NoError(t, err)
	assert.True(t, tx1.Linked)
	assert.True(t, tx1.Amount.Equal(decimal.RequireFromString("-15.49")))
	assert.Equal(t, jan, tx1.Date)

	all, err := store.ListTransactions(ctx, "user-1", TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tx-2", all[0].ID, "newest first")

	unlinked, err := store.ListTransactions(ctx, "user-1", TransactionFilter{UnlinkedOnly: true})
	require.NoError(t, err)
	require.Len(t, unlinked, 1)
	assert.Equal(t, "tx-2", unlinked[0].ID)
	assert.False(t, unlinked[0].Linked)
}

func TestStorage_UpsertTransactionReplaces(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	d := civil.Date{Year: 2024, Month: time.January, Day: 5}

	tx := testTransaction("tx-1", d, "-15.49")
	require.NoError(t, store.UpsertTransaction(ctx, tx))
	tx.Merchant = "Netflix"
	require.NoError(t, store.UpsertTransaction(ctx, tx))

	got, err := store.GetTransaction(ctx, "user-1", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got.Merchant)

	_, err = store.GetTransaction(ctx, "user-2", "tx-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Categories(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCategory(ctx, &model.Category{ID: "c2", UserID: "user-1", Name: "Utilities"}))
	require.NoError(t, store.UpsertCategory(ctx, &model.Category{ID: "c1", UserID: "user-1", Name: "Streaming", Color: "#ff0000"}))

	got, err := store.GetCategory(ctx, "user-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", got.Color)

	list, err := store.ListCategories(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Streaming", list[0].Name)

	_, err = store.GetCategory(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_InTx_RollsBackOnError(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(repo Repository) error {
		if err := repo.CreateService(ctx, testService("svc-1", "Netflix", "netflix")); err != nil {
			return err
		}
		// Reads inside the transaction see the write
		if _, err := repo.GetService(ctx, "user-1", "svc-1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetService(ctx, "user-1", "svc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_InTx_Commits(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	err := store.InTx(ctx, func(repo Repository) error {
		return repo.CreateService(ctx, testService("svc-1", "Netflix", "netflix"))
	})
	require.NoError(t, err)

	_, err = store.GetService(ctx, "user-1", "svc-1")
	assert.NoError(t, err)
}
