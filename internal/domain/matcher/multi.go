package matcher

import (
	"sort"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// FindPotentialMatches scores tx against every candidate service and returns
// those at or above the confidence floor, best first. Cancelled services are
// not candidates. Ties are ordered by service name, then id.
func (s *Scorer) FindPotentialMatches(tx model.Transaction, services []model.RecurringService) []MatchResult {
	results := make([]MatchResult, 0)

	for _, svc := range services {
		if svc.Status == model.StatusCancelled {
			continue
		}
		if svc.UserID != "" && tx.UserID != "" && svc.UserID != tx.UserID {
			continue
		}

		result := s.Score(tx, svc)
		if result.Confidence < s.config.MinConfidence {
			continue
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		if results[i].ServiceName != results[j].ServiceName {
			return results[i].ServiceName < results[j].ServiceName
		}
		return results[i].ServiceID < results[j].ServiceID
	})

	return results
}
