package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
)

// RunRecalculate re-derives every service of one user and prints a summary.
func RunRecalculate(ctx context.Context, w io.Writer, flags *UserFlags) error {
	app, err := NewApp(flags.ConfigPath, "recalculate", flags.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Tracker.RecalculateAllServices(ctx, flags.UserID)
	if err != nil {
		return err
	}
	return reportRecalculate(w, flags, result)
}

// reportRecalculate prints result in the requested format. Any per-service
// failure turns into an error so the process exits non-zero either way.
func reportRecalculate(w io.Writer, flags *UserFlags, result *tracker.RecalculateResult) error {
	if flags.JSON {
		if err := PrintJSON(w, result); err != nil {
			return err
		}
	} else {
		PrintHeader(w, "recalculate", flags.UserID)
		PrintRecalculateSummary(w, result)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d services failed", len(result.Failures), result.Processed)
	}
	return nil
}

// RunDetect scans a user's history and optionally confirms every candidate.
func RunDetect(ctx context.Context, w io.Writer, flags *DetectFlags) error {
	app, err := NewApp(flags.ConfigPath, "detect", flags.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	candidates, err := app.Tracker.Detect(ctx, flags.UserID, detector.Options{
		MinOccurrences: flags.MinOccurrences,
		LookbackMonths: flags.LookbackMonths,
	})
	if err != nil {
		return err
	}

	if !flags.Confirm {
		if flags.JSON {
			return PrintJSON(w, candidates)
		}
		PrintHeader(w, "detect", flags.UserID)
		PrintCandidates(w, candidates)
		return nil
	}

	result, err := app.Tracker.ConfirmDetected(ctx, flags.UserID, candidates)
	if err != nil {
		return err
	}
	if flags.JSON {
		return PrintJSON(w, result)
	}
	PrintHeader(w, "detect", flags.UserID)
	PrintCandidates(w, candidates)
	PrintConfirmSummary(w, result)
	return nil
}
