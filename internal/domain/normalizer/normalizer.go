// Package normalizer canonicalizes transaction descriptions and merchant
// names into comparable keys.
//
// A key is lower case, accent free, has reference-number runs (more than
// three digits) and processor boilerplate removed, and single spaces between
// tokens. Normalize is total and idempotent: Normalize(Normalize(s)) ==
// Normalize(s), and the empty string maps to the empty string.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	longDigitRun = regexp.MustCompile(`\d{4,}`)
	nonWord      = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// boilerplate tokens carry no identity: payment processors, channels and
// legal suffixes.
var boilerplate = map[string]bool{
	"ach":       true,
	"autopay":   true,
	"card":      true,
	"co":        true,
	"com":       true,
	"dd":        true,
	"debit":     true,
	"des":       true,
	"direct":    true,
	"inc":       true,
	"indn":      true,
	"llc":       true,
	"ltd":       true,
	"online":    true,
	"paypal":    true,
	"pmt":       true,
	"pos":       true,
	"ppd":       true,
	"purchase":  true,
	"recurring": true,
	"ref":       true,
	"sepa":      true,
	"sq":        true,
	"tst":       true,
	"txn":       true,
	"visa":      true,
	"web":       true,
	"www":       true,
}

// Normalize returns the comparison key for a raw description or merchant.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	// Transformers keep internal state, so build them per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		s = raw
	}
	s = cases.Fold().String(s)

	s = longDigitRun.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if boilerplate[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return strings.Join(tokens, " ")
}

// KeyFor picks the merchant when present, otherwise the description.
func KeyFor(merchant, description string) string {
	if key := Normalize(merchant); key != "" {
		return key
	}
	return Normalize(description)
}

// Tokens splits a key into its tokens.
func Tokens(key string) []string {
	return strings.Fields(key)
}

// DisplayName turns a key into a title-cased name. Normalize(DisplayName(k))
// returns k for any key produced by Normalize.
func DisplayName(key string) string {
	words := strings.Fields(key)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
