package detector

import "github.com/eshaffer321/recurring-ledger/internal/domain/model"

// Config holds detector tuning. The defaults are starting points, not
// validated constants.
type Config struct {
	MinOccurrences int // Default: 3
	LookbackMonths int // Default: 12

	DayToleranceShort int // Weekly/biweekly gap tolerance in days (default: 1)
	DayToleranceLong  int // Month-based gap tolerance in days (default: 3)

	VariableAmountThreshold float64 // (max-min)/mean above this marks amount_varies (default: 0.15)
	MaxRelativeVariance     float64 // Relative variance at which amount regularity reaches 0 (default: 0.5)
	FullOccurrences         int     // Occurrences at which the count score saturates (default: 6)

	GapWeight        float64 // Default: 0.5
	AmountWeight     float64 // Default: 0.3
	OccurrenceWeight float64 // Default: 0.2
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinOccurrences:          3,
		LookbackMonths:          12,
		DayToleranceShort:       1,
		DayToleranceLong:        3,
		VariableAmountThreshold: 0.15,
		MaxRelativeVariance:     0.5,
		FullOccurrences:         6,
		GapWeight:               0.5,
		AmountWeight:            0.3,
		OccurrenceWeight:        0.2,
	}
}

// Options are the per-call detection parameters.
type Options struct {
	MinOccurrences int
	LookbackMonths int
}

// Tolerance returns the allowed deviation in days from a projected date of freq.
func (c Config) Tolerance(freq model.Frequency) int {
	if freq.MonthBased() {
		return c.DayToleranceLong
	}
	return c.DayToleranceShort
}
