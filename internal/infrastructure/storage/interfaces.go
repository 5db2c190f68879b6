package storage

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

var (
	// ErrNotFound is returned when a row does not exist for the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness guard: a
	// second active service with the same normalized name, or a second
	// realized payment for the same transaction.
	ErrConflict = errors.New("conflict")
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	ServiceRepository
	PaymentRepository
	TransactionRepository
	CategoryRepository

	// InTx runs fn inside a transaction. The Repository passed to fn must be
	// used for every read and write that belongs to the transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repository) error) error

	Close() error
}

// ServiceRepository handles recurring service definitions
type ServiceRepository interface {
	// CreateService inserts a service. Returns ErrConflict when another
	// non-cancelled service of the user has the same normalized name.
	CreateService(ctx context.Context, svc *model.RecurringService) error

	// UpdateService overwrites every mutable column of an existing service
	UpdateService(ctx context.Context, svc *model.RecurringService) error

	// DeleteService removes a service and, by cascade, its payments
	DeleteService(ctx context.Context, userID, id string) error

	// GetService retrieves a service by ID
	GetService(ctx context.Context, userID, id string) (*model.RecurringService, error)

	// FindServiceByNormalizedName returns the user's non-cancelled service
	// with the given key, or ErrNotFound
	FindServiceByNormalizedName(ctx context.Context, userID, normalizedName string) (*model.RecurringService, error)

	// ListServices returns the user's services ordered by name
	ListServices(ctx context.Context, userID string, filter ServiceFilter) ([]model.RecurringService, error)
}

// ServiceFilter defines filters for listing services
type ServiceFilter struct {
	Statuses []model.ServiceStatus // Empty = all
}

// PaymentRepository handles the realized payment ledger
type PaymentRepository interface {
	// CreatePayment inserts a realized payment. Returns ErrConflict when the
	// transaction already funds a realized payment of the same user.
	CreatePayment(ctx context.Context, payment *model.ServicePayment) error

	// DeletePayment removes a payment by ID
	DeletePayment(ctx context.Context, userID, id string) error

	// GetPayment retrieves a payment by ID
	GetPayment(ctx context.Context, userID, id string) (*model.ServicePayment, error)

	// GetPaymentByTransaction returns the realized payment funded by a
	// transaction, or ErrNotFound
	GetPaymentByTransaction(ctx context.Context, userID, transactionID string) (*model.ServicePayment, error)

	// ListPayments returns payments ordered by payment date descending
	ListPayments(ctx context.Context, userID string, filter PaymentFilter) ([]model.ServicePayment, error)
}

// PaymentFilter defines filters for listing payments
type PaymentFilter struct {
	ServiceID string      // Empty = all services
	From      *civil.Date // Inclusive
	To        *civil.Date // Inclusive
	Limit     int         // 0 = no limit
}

// TransactionRepository is the boundary to the externally owned transaction
// store. Linked is derived on read.
type TransactionRepository interface {
	// UpsertTransaction inserts or replaces a transaction
	UpsertTransaction(ctx context.Context, tx *model.Transaction) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)

	// ListTransactions returns transactions ordered by date descending
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
}

// TransactionFilter defines filters for listing transactions
type TransactionFilter struct {
	From         *civil.Date // Inclusive
	To           *civil.Date // Inclusive
	UnlinkedOnly bool
	Limit        int // 0 = no limit
}

// CategoryRepository is the boundary to the externally owned categories
type CategoryRepository interface {
	UpsertCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, userID, id string) (*model.Category, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
}
