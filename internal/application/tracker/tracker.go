// Package tracker is the service registry and payment ledger: every
// operation a host (HTTP or CLI) exposes over a user's recurring services.
//
// Writes for one user are serialised by a per-user lock and run inside a
// single repository transaction, so concurrent confirmations or links from
// several browser tabs cannot create duplicate services or double links.
// The storage layer's unique indexes back this up.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
	"github.com/eshaffer321/recurring-ledger/internal/domain/matcher"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/reconciler"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// Clock supplies the current calendar date.
type Clock interface {
	Today() civil.Date
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() civil.Date

// Today returns f().
func (f ClockFunc) Today() civil.Date { return f() }

// SystemClock returns a Clock reading the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return ClockFunc(func() civil.Date {
		return civil.DateOf(time.Now().In(loc))
	})
}

// Config holds tracker configuration.
type Config struct {
	Detector        detector.Config
	Matcher         matcher.Config
	DefaultCurrency string // Default: USD
	MaxMonthsAhead  int    // Upper bound for GetUpcomingPayments (default: 24)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Detector:        detector.DefaultConfig(),
		Matcher:         matcher.DefaultConfig(),
		DefaultCurrency: "USD",
		MaxMonthsAhead:  24,
	}
}

// Tracker implements the recurring service operations.
type Tracker struct {
	repo     storage.Repository
	clock    Clock
	config   Config
	detector *detector.Detector
	scorer   *matcher.Scorer
	logger   *slog.Logger

	newID func() string
	now   func() time.Time

	// Per-user write serialisation
	userLocks  map[string]*sync.Mutex
	locksMutex sync.Mutex
}

// New creates a tracker over repo.
func New(repo storage.Repository, clock Clock, config Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock(nil)
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}
	if config.MaxMonthsAhead <= 0 {
		config.MaxMonthsAhead = 24
	}
	return &Tracker{
		repo:      repo,
		clock:     clock,
		config:    config,
		detector:  detector.New(config.Detector, logger),
		scorer:    matcher.NewScorer(config.Matcher),
		logger:    logger,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
		userLocks: make(map[string]*sync.Mutex),
	}
}

// lockUser blocks until the user's write lock is held and returns its release.
func (t *Tracker) lockUser(userID string) func() {
	t.locksMutex.Lock()
	lock, exists := t.userLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		t.userLocks[userID] = lock
	}
	t.locksMutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

// write runs fn in a repository transaction while holding the user's lock.
// fn must use the Repository it is given.
func (t *Tracker) write(ctx context.Context, userID string, fn func(repo storage.Repository) error) error {
	if userID == "" {
		return model.NewValidationError("user_id", "is required")
	}
	unlock := t.lockUser(userID)
	defer unlock()

	return t.repo.InTx(ctx, fn)
}

// reconcileInPlace re-derives svc's status and dates from its realized
// payments without saving. It reports whether anything changed.
func (t *Tracker) reconcileInPlace(ctx context.Context, repo storage.Repository, svc *model.RecurringService) (bool, error) {
	payments, err := repo.ListPayments(ctx, svc.UserID, storage.PaymentFilter{ServiceID: svc.ID})
	if err != nil {
		return false, fmt.Errorf("failed to load payments for service %s: %w", svc.ID, err)
	}

	res := reconciler.Reconcile(*svc, payments, t.clock.Today())
	if res.Changed {
		res.Apply(svc)
	}
	return res.Changed, nil
}

// refreshService reconciles svc and persists it when anything changed.
func (t *Tracker) refreshService(ctx context.Context, repo storage.Repository, svc *model.RecurringService) (bool, error) {
	changed, err := t.reconcileInPlace(ctx, repo, svc)
	if err != nil || !changed {
		return false, err
	}

	svc.UpdatedAt = t.now()
	if err := repo.UpdateService(ctx, svc); err != nil {
		return false, fmt.Errorf("failed to save service %s: %w", svc.ID, err)
	}
	return true, nil
}

// loadService maps storage.ErrNotFound to a NotFoundError.
func loadService(ctx context.Context, repo storage.Repository, userID, id string) (*model.RecurringService, error) {
	svc, err := repo.GetService(ctx, userID, id)
	if err != nil {
		return nil, notFound("service", id, err)
	}
	return svc, nil
}

func notFound(resource, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &model.NotFoundError{Resource: resource, ID: id}
	}
	return fmt.Errorf("failed to load %s %s: %w", resource, id, err)
}

func requireUser(userID string) error {
	if userID == "" {
		return model.NewValidationError("user_id", "is required")
	}
	return nil
}
