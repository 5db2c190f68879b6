package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/eshaffer321/recurring-ledger/internal/domain/normalizer"
)

func init() {
	goose.AddMigrationContext(upBackfillNormalizedNames, downBackfillNormalizedNames)
}

// upBackfillNormalizedNames fills normalized_name for services written by
// tools that left it empty, so the duplicate guard covers them.
func upBackfillNormalizedNames(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name FROM services WHERE normalized_name = ''
	`)
	if err != nil {
		return err
	}

	type pending struct {
		id   string
		name string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.name); err != nil {
			_ = rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, p := range todo {
		key := normalizer.Normalize(p.name)
		if key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE services SET normalized_name = ? WHERE id = ?`, key, p.id); err != nil {
			return err
		}
	}

	return nil
}

// downBackfillNormalizedNames is a no-op: the backfilled keys are valid data.
func downBackfillNormalizedNames(ctx context.Context, tx *sql.Tx) error {
	return nil
}
