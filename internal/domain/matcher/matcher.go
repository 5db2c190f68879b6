// Package matcher scores how likely a transaction is a payment of a
// recurring service.
//
// The score is a weighted average of three 0-100 sub-scores:
//   - Text: token overlap between the normalized transaction and service names
//   - Amount: distance from the service's amount range or estimate
//   - Date: distance from the service's next expected date
//
// Example usage:
//
//	s := matcher.NewScorer(matcher.DefaultConfig())
//	result := s.Score(tx, service)
//	matches := s.FindPotentialMatches(tx, services)
package matcher

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/normalizer"
	"github.com/eshaffer321/recurring-ledger/internal/domain/schedule"
)

// Scorer scores transactions against services
type Scorer struct {
	config Config
}

// NewScorer creates a new scorer with the given config
func NewScorer(config Config) *Scorer {
	return &Scorer{
		config: config,
	}
}

// MinConfidence returns the floor used by FindPotentialMatches.
func (s *Scorer) MinConfidence() int {
	return s.config.MinConfidence
}

// Score returns the confidence that tx is a payment of svc. It never fails;
// missing service data falls back to the configured neutral sub-scores.
func (s *Scorer) Score(tx model.Transaction, svc model.RecurringService) MatchResult {
	text := s.textScore(tx, svc)
	amount := s.amountScore(tx, svc)
	date := s.dateScore(tx, svc)

	total := s.config.TextWeight*text + s.config.AmountWeight*amount + s.config.DateWeight*date

	return MatchResult{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Confidence:  clampScore(total),
		TextScore:   clampScore(text),
		AmountScore: clampScore(amount),
		DateScore:   clampScore(date),
	}
}

// textScore is the Dice coefficient over normalized tokens.
func (s *Scorer) textScore(tx model.Transaction, svc model.RecurringService) float64 {
	txTokens := normalizer.Tokens(normalizer.KeyFor(tx.Merchant, tx.Description))

	svcKey := svc.NormalizedName
	if svcKey == "" {
		svcKey = normalizer.Normalize(svc.Name)
	}
	svcTokens := normalizer.Tokens(svcKey)

	if len(txTokens) == 0 || len(svcTokens) == 0 {
		return 0
	}

	used := make([]bool, len(svcTokens))
	matched := 0
	for _, a := range txTokens {
		for j, b := range svcTokens {
			if used[j] || !s.tokensMatch(a, b) {
				continue
			}
			used[j] = true
			matched++
			break
		}
	}

	return 100 * float64(2*matched) / float64(len(txTokens)+len(svcTokens))
}

// tokensMatch allows one edit on long tokens, which absorbs truncated or
// misspelled merchant names on statements.
func (s *Scorer) tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < s.config.FuzzyTokenLength || len(b) < s.config.FuzzyTokenLength {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= 1
}

func (s *Scorer) amountScore(tx model.Transaction, svc model.RecurringService) float64 {
	if svc.Currency != "" && tx.Currency != "" && !strings.EqualFold(svc.Currency, tx.Currency) {
		return 0
	}

	amount := tx.Amount.Abs()

	if svc.AmountVaries && svc.MinAmount.Valid && svc.MaxAmount.Valid {
		lo, hi := svc.MinAmount.Decimal, svc.MaxAmount.Decimal
		switch {
		case amount.LessThan(lo):
			return s.decay(relativeDeviation(amount, lo), 0)
		case amount.GreaterThan(hi):
			return s.decay(relativeDeviation(amount, hi), 0)
		default:
			return 100
		}
	}

	if !svc.EstimatedAmount.Valid || !svc.EstimatedAmount.Decimal.IsPositive() {
		return float64(s.config.UnknownAmountScore)
	}

	return s.decay(relativeDeviation(amount, svc.EstimatedAmount.Decimal), s.config.AmountTolerance)
}

// decay is 100 up to tolerance, then falls linearly to 0 at MaxAmountDeviation.
func (s *Scorer) decay(deviation, tolerance float64) float64 {
	if deviation <= tolerance {
		return 100
	}
	span := s.config.MaxAmountDeviation - tolerance
	if span <= 0 {
		return 0
	}
	return math.Max(0, 100*(1-(deviation-tolerance)/span))
}

func (s *Scorer) dateScore(tx model.Transaction, svc model.RecurringService) float64 {
	if svc.NextExpectedDate == nil {
		return float64(s.config.UnknownDateScore)
	}
	if s.config.MaxDateOffsetDays <= 0 {
		if tx.Date == *svc.NextExpectedDate {
			return 100
		}
		return 0
	}

	offset := math.Abs(float64(schedule.DaysBetween(*svc.NextExpectedDate, tx.Date)))
	return math.Max(0, 100*(1-offset/float64(s.config.MaxDateOffsetDays)))
}

func relativeDeviation(amount, reference decimal.Decimal) float64 {
	if !reference.IsPositive() {
		return math.Inf(1)
	}
	return amount.Sub(reference).Abs().Div(reference).InexactFloat64()
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
