package matcher

// Config holds scorer configuration
type Config struct {
	TextWeight   float64 // Default: 0.4
	AmountWeight float64 // Default: 0.35
	DateWeight   float64 // Default: 0.25

	AmountTolerance    float64 // Relative band around estimated_amount scored 100 (default: 0.05)
	MaxAmountDeviation float64 // Relative deviation at which the amount score reaches 0 (default: 0.5)
	MaxDateOffsetDays  int     // Days from next_expected_date at which the date score reaches 0 (default: 10)

	UnknownAmountScore int // Used when the service has no amount (default: 50)
	UnknownDateScore   int // Used when the service has no next_expected_date (default: 40)

	// FuzzyTokenLength is the minimum token length for which a Levenshtein
	// distance of 1 still counts as a token match (default: 5).
	FuzzyTokenLength int

	MinConfidence int // Potential matches must score at least this (default: 30)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TextWeight:         0.4,
		AmountWeight:       0.35,
		DateWeight:         0.25,
		AmountTolerance:    0.05,
		MaxAmountDeviation: 0.5,
		MaxDateOffsetDays:  10,
		UnknownAmountScore: 50,
		UnknownDateScore:   40,
		FuzzyTokenLength:   5,
		MinConfidence:      30,
	}
}

// MatchResult contains match information for one service
type MatchResult struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Confidence  int    `json:"confidence"` // 0-100

	TextScore   int `json:"text_score"`
	AmountScore int `json:"amount_score"`
	DateScore   int `json:"date_score"`
}
