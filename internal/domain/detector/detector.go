// Package detector finds recurring payment patterns in a user's unlinked
// transactions.
//
// Transactions are grouped by normalized merchant/description key. A group
// qualifies when enough of its consecutive day gaps land within tolerance of
// one frequency's nominal interval. Each qualifying group becomes an immutable
// Candidate; nothing is persisted here.
//
// Example usage:
//
//	d := detector.New(detector.DefaultConfig(), logger)
//	candidates := d.Detect(transactions, existingServices, detector.Options{}, today)
package detector

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
	"github.com/eshaffer321/recurring-ledger/internal/domain/normalizer"
	"github.com/eshaffer321/recurring-ledger/internal/domain/schedule"
)

// Detector evaluates transaction groups against the frequency table.
type Detector struct {
	config Config
	logger *slog.Logger
}

// New creates a detector with the given config.
func New(config Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		config: config,
		logger: logger,
	}
}

// Detect returns one candidate per qualifying group, ordered by confidence.
// Sparse input yields an empty result, never an error.
func (d *Detector) Detect(
	transactions []model.Transaction,
	existing []model.RecurringService,
	opts Options,
	today civil.Date,
) []model.Candidate {
	minOccurrences := opts.MinOccurrences
	if minOccurrences <= 0 {
		minOccurrences = d.config.MinOccurrences
	}
	if minOccurrences < 2 {
		minOccurrences = 2 // a single occurrence has no gap to classify
	}
	lookback := opts.LookbackMonths
	if lookback <= 0 {
		lookback = d.config.LookbackMonths
	}
	cutoff := schedule.AddMonths(today, -lookback)

	tracked := make(map[string]bool)
	for _, svc := range existing {
		if svc.Status == model.StatusCancelled {
			continue
		}
		key := svc.NormalizedName
		if key == "" {
			key = normalizer.Normalize(svc.Name)
		}
		tracked[key] = true
	}

	groups := make(map[string][]model.Transaction)
	for _, tx := range transactions {
		if tx.Linked || tx.Amount.IsZero() {
			continue
		}
		if tx.Date.Before(cutoff) || tx.Date.After(today) {
			continue
		}
		key := normalizer.KeyFor(tx.Merchant, tx.Description)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], tx)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	candidates := make([]model.Candidate, 0)
	for _, key := range keys {
		if tracked[key] {
			d.logger.Debug("skipping group already tracked as a service", "key", key)
			continue
		}

		group := dominantSign(groups[key])
		if len(group) < minOccurrences {
			continue
		}

		candidate, ok := d.evaluate(key, group, minOccurrences)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].NormalizedName < candidates[j].NormalizedName
	})

	d.logger.Debug("detection complete",
		"transactions", len(transactions),
		"groups", len(groups),
		"candidates", len(candidates))

	return candidates
}

// evaluate classifies one group and builds its candidate.
func (d *Detector) evaluate(key string, group []model.Transaction, minOccurrences int) (model.Candidate, bool) {
	sort.Slice(group, func(i, j int) bool {
		if group[i].Date != group[j].Date {
			return group[i].Date.Before(group[j].Date)
		}
		return group[i].ID < group[j].ID
	})

	typicalDay := medianDay(group)

	freq, inBand := d.classifyGaps(group, typicalDay)
	gaps := len(group) - 1
	if inBand == 0 || inBand < minOccurrences-1 {
		return model.Candidate{}, false
	}

	stats := amountStats(group)
	varies := stats.relativeVariance > d.config.VariableAmountThreshold

	gapRegularity := float64(inBand) / float64(gaps)
	amountRegularity := 1 - math.Min(stats.relativeVariance/d.config.MaxRelativeVariance, 1)
	occurrenceScore := math.Min(float64(len(group))/float64(d.config.FullOccurrences), 1)

	score := 100 * (d.config.GapWeight*gapRegularity +
		d.config.AmountWeight*amountRegularity +
		d.config.OccurrenceWeight*occurrenceScore)
	confidence := int(math.Round(math.Max(0, math.Min(100, score))))

	first := group[0]
	last := group[len(group)-1]

	anchor := 0
	var typical *int
	if freq.MonthBased() {
		anchor = typicalDay
		day := typicalDay
		typical = &day
	}

	candidate := model.Candidate{
		Name:              displayName(key, last),
		NormalizedName:    key,
		Frequency:         freq,
		TypicalDayOfMonth: typical,
		EstimatedAmount:   stats.mean.Round(2),
		AmountVaries:      varies,
		Currency:          dominantCurrency(group),
		CategoryID:        dominantCategory(group),
		Confidence:        confidence,
		OccurrenceCount:   len(group),
		FirstDate:         first.Date,
		LastDate:          last.Date,
		NextExpectedDate:  schedule.NextDate(freq, anchor, last.Date),
		TransactionIDs:    make([]string, 0, len(group)),
	}
	if varies {
		candidate.MinAmount = decimal.NewNullDecimal(stats.min)
		candidate.MaxAmount = decimal.NewNullDecimal(stats.max)
	}
	for _, tx := range group {
		candidate.TransactionIDs = append(candidate.TransactionIDs, tx.ID)
	}

	d.logger.Debug("candidate detected",
		"key", key,
		"frequency", freq,
		"occurrences", len(group),
		"gaps_in_band", inBand,
		"confidence", confidence)

	return candidate, true
}

// classifyGaps returns the frequency whose nominal interval explains the most
// consecutive day gaps, and how many gaps it explains. Ties go to the shorter
// frequency.
func (d *Detector) classifyGaps(group []model.Transaction, typicalDay int) (model.Frequency, int) {
	var best model.Frequency
	bestCount := 0

	for _, freq := range model.Frequencies {
		count := 0
		for i := 1; i < len(group); i++ {
			if d.gapInBand(freq, typicalDay, group[i-1].Date, group[i].Date) {
				count++
			}
		}

		if count > bestCount {
			best = freq
			bestCount = count
		}
	}

	return best, bestCount
}

// gapInBand reports whether prev -> next is one interval of freq. The day gap
// must be within tolerance of the nominal length. For month-based
// frequencies a gap up to twice the tolerance also counts when next lands on
// the anchor day, so a single weekend shift does not spoil the gap after it.
func (d *Detector) gapInBand(freq model.Frequency, typicalDay int, prev, next civil.Date) bool {
	tol := float64(d.config.Tolerance(freq))
	deviation := math.Abs(float64(schedule.DaysBetween(prev, next)) - nominalDays(freq))
	if deviation <= tol {
		return true
	}
	if !freq.MonthBased() || deviation > 2*tol {
		return false
	}
	projected := schedule.NextDate(freq, typicalDay, prev)
	return abs(schedule.DaysBetween(projected, next)) <= d.config.Tolerance(freq)
}

// daysPerMonth is the mean Gregorian month length.
const daysPerMonth = 365.25 / 12

// nominalDays is the average gap in days between occurrences of freq.
func nominalDays(freq model.Frequency) float64 {
	if freq.MonthBased() {
		return daysPerMonth * float64(freq.IntervalMonths())
	}
	return float64(freq.IntervalDays())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type stats struct {
	mean             decimal.Decimal
	min              decimal.Decimal
	max              decimal.Decimal
	relativeVariance float64
}

// amountStats works on magnitudes; services store positive amounts.
func amountStats(group []model.Transaction) stats {
	first := group[0].Amount.Abs()
	s := stats{min: first, max: first}
	sum := decimal.Zero
	for _, tx := range group {
		amt := tx.Amount.Abs()
		sum = sum.Add(amt)
		if amt.LessThan(s.min) {
			s.min = amt
		}
		if amt.GreaterThan(s.max) {
			s.max = amt
		}
	}
	s.mean = sum.Div(decimal.NewFromInt(int64(len(group))))
	if s.mean.IsPositive() {
		s.relativeVariance = s.max.Sub(s.min).Div(s.mean).InexactFloat64()
	}
	return s
}

// dominantSign keeps the transactions that share the group's majority sign,
// so a refund does not distort an outflow pattern. Ties keep outflows.
func dominantSign(group []model.Transaction) []model.Transaction {
	outflows := make([]model.Transaction, 0, len(group))
	inflows := make([]model.Transaction, 0)
	for _, tx := range group {
		if tx.Amount.IsNegative() {
			outflows = append(outflows, tx)
		} else {
			inflows = append(inflows, tx)
		}
	}
	if len(inflows) > len(outflows) {
		return inflows
	}
	return outflows
}

func medianDay(group []model.Transaction) int {
	days := make([]int, len(group))
	for i, tx := range group {
		days[i] = tx.Date.Day
	}
	sort.Ints(days)
	return days[len(days)/2]
}

func dominantCurrency(group []model.Transaction) string {
	counts := make(map[string]int)
	best := ""
	for _, tx := range group {
		cur := strings.ToUpper(tx.Currency)
		counts[cur]++
		if counts[cur] > counts[best] || (counts[cur] == counts[best] && cur < best) {
			best = cur
		}
	}
	return best
}

func dominantCategory(group []model.Transaction) *string {
	counts := make(map[string]int)
	best := ""
	for _, tx := range group {
		if tx.CategoryID == nil || *tx.CategoryID == "" {
			continue
		}
		id := *tx.CategoryID
		counts[id]++
		if best == "" || counts[id] > counts[best] || (counts[id] == counts[best] && id < best) {
			best = id
		}
	}
	if best == "" {
		return nil
	}
	return &best
}

// displayName prefers the most recent merchant, which normalizes back to the
// group key, and falls back to a title-cased key.
func displayName(key string, latest model.Transaction) string {
	if merchant := strings.TrimSpace(latest.Merchant); merchant != "" && normalizer.Normalize(merchant) == key {
		return merchant
	}
	return normalizer.DisplayName(key)
}
