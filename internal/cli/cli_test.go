package cli

import (
	"bytes"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

func TestParseDetectFlags(t *testing.T) {
	flags, err := ParseDetectFlags([]string{"-user", "u1", "-min", "4", "-months", "6", "-confirm"})

	require.NoError(t, err)
	assert.Equal(t, "u1", flags.UserID)
	assert.Equal(t, 4, flags.MinOccurrences)
	assert.Equal(t, 6, flags.LookbackMonths)
	assert.True(t, flags.Confirm)
	assert.Equal(t, "config.yaml", flags.ConfigPath)
}

func TestParseRecalculateFlags_RequiresUser(t *testing.T) {
	_, err := ParseRecalculateFlags([]string{"-json"})
	assert.EqualError(t, err, "-user is required")
}

func TestParseServeFlags(t *testing.T) {
	flags, err := ParseServeFlags([]string{"-port", "9000", "-verbose"})

	require.NoError(t, err)
	assert.Equal(t, 9000, flags.Port)
	assert.True(t, flags.Verbose)
}

func TestPrintCandidates(t *testing.T) {
	var buf bytes.Buffer
	PrintCandidates(&buf, []model.Candidate{{
		Name:             "Netflix",
		Frequency:        model.FrequencyMonthly,
		EstimatedAmount:  decimal.RequireFromString("15.49"),
		Currency:         "USD",
		Confidence:       92,
		OccurrenceCount:  6,
		NextExpectedDate: civil.Date{Year: 2024, Month: 7, Day: 5},
	}})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, "15.49 USD")
	assert.Contains(t, out, "2024-07-05")
	assert.Contains(t, out, "92%")

	buf.Reset()
	PrintCandidates(&buf, nil)
	assert.Equal(t, "No recurring payments detected.\n", buf.String())
}

func TestPrintRecalculateSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintRecalculateSummary(&buf, &tracker.RecalculateResult{
		Processed: 3,
		Updated:   1,
		Failures:  []tracker.ItemError{{ID: "svc-2", Error: "boom"}},
	})

	assert.Contains(t, buf.String(), "Summary: Processed=3 Updated=1 Errors=1")
	assert.Contains(t, buf.String(), "  - svc-2: boom")
}

func TestReportRecalculate_FailuresReturnErrorInBothFormats(t *testing.T) {
	result := &tracker.RecalculateResult{
		Processed: 2,
		Updated:   1,
		Failures:  []tracker.ItemError{{ID: "svc-2", Error: "disk full"}},
	}

	for _, asJSON := range []bool{false, true} {
		var buf bytes.Buffer
		flags := &UserFlags{UserID: "user-1"}
		flags.JSON = asJSON

		err := reportRecalculate(&buf, flags, result)

		require.Error(t, err, "json=%v", asJSON)
		assert.Contains(t, err.Error(), "1 of 2 services failed")
		assert.Contains(t, buf.String(), "svc-2")
	}
}

func TestReportRecalculate_CleanRunSucceeds(t *testing.T) {
	var buf bytes.Buffer
	flags := &UserFlags{UserID: "user-1"}
	flags.JSON = true

	err := reportRecalculate(&buf, flags, &tracker.RecalculateResult{Processed: 2, Updated: 2})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"processed": 2`)
}
