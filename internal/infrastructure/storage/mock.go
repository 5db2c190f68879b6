package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated, and enforces
// the same uniqueness guards and cascade as the SQLite schema.
type MockRepository struct {
	mu           sync.Mutex
	services     map[string]model.RecurringService
	payments     map[string]model.ServicePayment
	transactions map[string]model.Transaction // Keyed by user_id + "/" + id
	categories   map[string]model.Category    // Keyed by user_id + "/" + id

	// Hooks for test assertions
	CreateServiceCalls int
	UpdateServiceCalls int
	CreatePaymentCalls int
	DeletePaymentCalls int
	InTxCalls          int

	// Error injection for testing error paths
	CreateServiceErr error
	UpdateServiceErr error
	CreatePaymentErr error
	ListServicesErr  error
	// UpdateServiceErrFor fails UpdateService only for the given service IDs.
	UpdateServiceErrFor map[string]error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		services:            make(map[string]model.RecurringService),
		payments:            make(map[string]model.ServicePayment),
		transactions:        make(map[string]model.Transaction),
		categories:          make(map[string]model.Category),
		UpdateServiceErrFor: make(map[string]error),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// InTx snapshots the maps and restores them when fn fails. Mock transactions
// are not isolated from each other; callers serialise writers.
func (m *MockRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	m.InTxCalls++
	snapshot := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

type mockSnapshot struct {
	services map[string]model.RecurringService
	payments map[string]model.ServicePayment
}

func (m *MockRepository) snapshot() mockSnapshot {
	s := mockSnapshot{
		services: make(map[string]model.RecurringService, len(m.services)),
		payments: make(map[string]model.ServicePayment, len(m.payments)),
	}
	for k, v := range m.services {
		s.services[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = v
	}
	return s
}

func (m *MockRepository) restore(s mockSnapshot) {
	m.services = s.services
	m.payments = s.payments
}

// ================================================================
// SERVICES
// ================================================================

// CreateService stores a copy of svc
func (m *MockRepository) CreateService(ctx context.Context, svc *model.RecurringService) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateServiceCalls++
	if m.CreateServiceErr != nil {
		return m.CreateServiceErr
	}
	if _, exists := m.services[svc.ID]; exists {
		return ErrConflict
	}
	if m.liveNameTaken(svc.UserID, svc.NormalizedName, svc.Status, svc.ID) {
		return ErrConflict
	}
	m.services[svc.ID] = *svc
	return nil
}

// UpdateService replaces the stored service
func (m *MockRepository) UpdateService(ctx context.Context, svc *model.RecurringService) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateServiceCalls++
	if m.UpdateServiceErr != nil {
		return m.UpdateServiceErr
	}
	if err := m.UpdateServiceErrFor[svc.ID]; err != nil {
		return err
	}
	existing, ok := m.services[svc.ID]
	if !ok || existing.UserID != svc.UserID {
		return ErrNotFound
	}
	if m.liveNameTaken(svc.UserID, svc.NormalizedName, svc.Status, svc.ID) {
		return ErrConflict
	}
	updated := *svc
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedOn = existing.CreatedOn
	m.services[svc.ID] = updated
	return nil
}

func (m *MockRepository) liveNameTaken(userID, key string, status model.ServiceStatus, exceptID string) bool {
	if status == model.StatusCancelled {
		return false
	}
	for id, other := range m.services {
		if id == exceptID || other.UserID != userID || other.Status == model.StatusCancelled {
			continue
		}
		if other.NormalizedName == key {
			return true
		}
	}
	return false
}

// DeleteService removes the service and its payments
func (m *MockRepository) DeleteService(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[id]
	if !ok || svc.UserID != userID {
		return ErrNotFound
	}
	delete(m.services, id)
	for pid, p := range m.payments {
		if p.ServiceID == id {
			delete(m.payments, pid)
		}
	}
	return nil
}

// GetService returns a copy of the stored service
func (m *MockRepository) GetService(ctx context.Context, userID, id string) (*model.RecurringService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[id]
	if !ok || svc.UserID != userID {
		return nil, ErrNotFound
	}
	return &svc, nil
}

// FindServiceByNormalizedName returns the live service with the key
func (m *MockRepository) FindServiceByNormalizedName(ctx context.Context, userID, normalizedName string) (*model.RecurringService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.services {
		if svc.UserID == userID && svc.NormalizedName == normalizedName && svc.Status != model.StatusCancelled {
			found := svc
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// ListServices returns matching services ordered by name
func (m *MockRepository) ListServices(ctx context.Context, userID string, filter ServiceFilter) ([]model.RecurringService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListServicesErr != nil {
		return nil, m.ListServicesErr
	}

	wanted := make(map[model.ServiceStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		wanted[s] = true
	}

	services := make([]model.RecurringService, 0)
	for _, svc := range m.services {
		if svc.UserID != userID {
			continue
		}
		if len(wanted) > 0 && !wanted[svc.Status] {
			continue
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		a, b := strings.ToLower(services[i].Name), strings.ToLower(services[j].Name)
		if a != b {
			return a < b
		}
		return services[i].ID < services[j].ID
	})
	return services, nil
}

// ================================================================
// PAYMENTS
// ================================================================

// CreatePayment stores a copy of payment
func (m *MockRepository) CreatePayment(ctx context.Context, payment *model.ServicePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreatePaymentCalls++
	if m.CreatePaymentErr != nil {
		return m.CreatePaymentErr
	}
	if _, exists := m.payments[payment.ID]; exists {
		return ErrConflict
	}
	if svc, ok := m.services[payment.ServiceID]; !ok || svc.UserID != payment.UserID {
		return ErrNotFound
	}
	if !payment.IsPredicted && payment.TransactionID != nil {
		for _, p := range m.payments {
			if p.UserID == payment.UserID && !p.IsPredicted && p.TransactionID != nil && *p.TransactionID == *payment.TransactionID {
				return ErrConflict
			}
		}
	}
	m.payments[payment.ID] = *payment
	return nil
}

// DeletePayment removes a payment
func (m *MockRepository) DeletePayment(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeletePaymentCalls++
	p, ok := m.payments[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

// GetPayment returns a copy of the stored payment
func (m *MockRepository) GetPayment(ctx context.Context, userID, id string) (*model.ServicePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return &p, nil
}

// GetPaymentByTransaction returns the realized payment for a transaction
func (m *MockRepository) GetPaymentByTransaction(ctx context.Context, userID, transactionID string) (*model.ServicePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.payments {
		if p.UserID == userID && !p.IsPredicted && p.TransactionID != nil && *p.TransactionID == transactionID {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// ListPayments returns matching payments, newest first
func (m *MockRepository) ListPayments(ctx context.Context, userID string, filter PaymentFilter) ([]model.ServicePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payments := make([]model.ServicePayment, 0)
	for _, p := range m.payments {
		if p.UserID != userID {
			continue
		}
		if filter.ServiceID != "" && p.ServiceID != filter.ServiceID {
			continue
		}
		if filter.From != nil && p.PaymentDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.PaymentDate.After(*filter.To) {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if a.PaymentDate != b.PaymentDate {
			return a.PaymentDate.After(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if filter.Limit > 0 && len(payments) > filter.Limit {
		payments = payments[:filter.Limit]
	}
	return payments, nil
}

// ================================================================
// TRANSACTIONS & CATEGORIES
// ================================================================

func ownedKey(userID, id string) string {
	return userID + "/" + id
}

// UpsertTransaction stores a copy of tx
func (m *MockRepository) UpsertTransaction(ctx context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *tx
	stored.Linked = false
	m.transactions[ownedKey(tx.UserID, tx.ID)] = stored
	return nil
}

// GetTransaction returns a copy of the stored transaction with Linked set
func (m *MockRepository) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[ownedKey(userID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	tx.Linked = m.isLinked(userID, id)
	return &tx, nil
}

// ListTransactions returns matching transactions, newest first
func (m *MockRepository) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	transactions := make([]model.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.UserID != userID {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		tx.Linked = m.isLinked(userID, tx.ID)
		if filter.UnlinkedOnly && tx.Linked {
			continue
		}
		transactions = append(transactions, tx)
	}
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[i].Date.After(transactions[j].Date)
		}
		return transactions[i].ID < transactions[j].ID
	})
	if filter.Limit > 0 && len(transactions) > filter.Limit {
		transactions = transactions[:filter.Limit]
	}
	return transactions, nil
}

func (m *MockRepository) isLinked(userID, transactionID string) bool {
	for _, p := range m.payments {
		if p.UserID == userID && !p.IsPredicted && p.TransactionID != nil && *p.TransactionID == transactionID {
			return true
		}
	}
	return false
}

// UpsertCategory stores a copy of category
func (m *MockRepository) UpsertCategory(ctx context.Context, category *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.categories[ownedKey(category.UserID, category.ID)] = *category
	return nil
}

// GetCategory returns a copy of the stored category
func (m *MockRepository) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[ownedKey(userID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListCategories returns the user's categories ordered by name
func (m *MockRepository) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	categories := make([]model.Category, 0)
	for _, c := range m.categories {
		if c.UserID == userID {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := strings.ToLower(categories[i].Name), strings.ToLower(categories[j].Name)
		if a != b {
			return a < b
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}
