package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// PrintHeader prints the command header
func PrintHeader(w io.Writer, command, userID string) {
	fmt.Fprintf(w, "recurring-ledger: %s (user %s)\n\n", command, userID)
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintCandidates prints detected candidates as a table
func PrintCandidates(w io.Writer, candidates []model.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No recurring payments detected.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFREQUENCY\tAMOUNT\tSEEN\tNEXT\tCONFIDENCE")
	for _, c := range candidates {
		amount := c.EstimatedAmount.StringFixed(2) + " " + c.Currency
		if c.AmountVaries && c.MinAmount.Valid && c.MaxAmount.Valid {
			amount = fmt.Sprintf("%s-%s %s", c.MinAmount.Decimal.StringFixed(2), c.MaxAmount.Decimal.StringFixed(2), c.Currency)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d%%\n",
			c.Name, c.Frequency, amount, c.OccurrenceCount, c.NextExpectedDate, c.Confidence)
	}
	_ = tw.Flush()
}

// PrintConfirmSummary prints the result of confirming candidates
func PrintConfirmSummary(w io.Writer, result *tracker.ConfirmResult) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Created=%d Duplicates=%d Errors=%d\n",
		result.CreatedCount, len(result.SkippedDuplicates), len(result.Errors))

	for _, name := range result.SkippedDuplicates {
		fmt.Fprintf(w, "  skipped %s (already tracked)\n", name)
	}
	printItemErrors(w, result.Errors)
}

// PrintRecalculateSummary prints the recalculation result summary
func PrintRecalculateSummary(w io.Writer, result *tracker.RecalculateResult) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Processed=%d Updated=%d Errors=%d\n",
		result.Processed, result.Updated, len(result.Failures))
	printItemErrors(w, result.Failures)
}

func printItemErrors(w io.Writer, errs []tracker.ItemError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(w, "\nErrors:")
	for _, e := range errs {
		label := e.Name
		if label == "" {
			label = e.ID
		}
		fmt.Fprintf(w, "  - %s: %s\n", label, e.Error)
	}
}
