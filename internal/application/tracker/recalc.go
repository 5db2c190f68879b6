package tracker

import (
	"context"
	"fmt"

	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// RecalculateAllServices reconciles every service of the user. Each service
// is written in its own transaction and only when something changed, so a
// second run right after the first writes nothing. A failing service is
// reported and the run continues.
func (t *Tracker) RecalculateAllServices(ctx context.Context, userID string) (*RecalculateResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	services, err := t.repo.ListServices(ctx, userID, storage.ServiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	result := &RecalculateResult{}
	for _, listed := range services {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		var changed bool
		err := t.write(ctx, userID, func(repo storage.Repository) error {
			svc, err := loadService(ctx, repo, userID, listed.ID)
			if err != nil {
				return err
			}
			changed, err = t.refreshService(ctx, repo, svc)
			return err
		})
		if err != nil {
			result.Failures = append(result.Failures, ItemError{ID: listed.ID, Name: listed.Name, Error: err.Error()})
			t.logger.Warn("failed to recalculate service",
				"service_id", listed.ID,
				"name", listed.Name,
				"error", err)
			continue
		}
		if changed {
			result.Updated++
		}
	}

	t.logger.Info("recalculated services",
		"user_id", userID,
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", len(result.Failures))
	return result, nil
}
