// Package token classifies cleaned answer-key tokens into typed answers.
//
// Two range policies live here on purpose and must stay separate: Classify
// accepts a lo:hi range only when both ends are numerically equal, while
// ParseBackfill (loose.go) collapses a real range to its midpoint with a
// derived tolerance. The strict policy guards OCR output, the loose one
// parses human-written catalog answers.
package token

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
)

var (
	mcqPattern          = regexp.MustCompile(`^[A-D]\.?$`)
	numericPattern      = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)
	numericRangePattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s*:\s*([+-]?(?:\d+(?:\.\d*)?|\.\d+))$`)
	upperLetterPattern  = regexp.MustCompile(`[A-Z]`)
	alphaPartPattern    = regexp.MustCompile(`^[A-Z]+$`)
	wsPattern           = regexp.MustCompile(`\s+`)
	semiWSPattern       = regexp.MustCompile(`\s*;\s*`)
)

var unsupportedLiterals = map[string]struct{}{
	"N/A": {}, "NA": {}, "TRUE": {}, "FALSE": {}, "X": {}, "XX": {},
}

const rangeEqualityEpsilon = 1e-9

var validOptions = map[string]struct{}{"A": {}, "B": {}, "C": {}, "D": {}}

// Normalize collapses whitespace, uppercases and trims stray dots so every
// call site feeds the rule list the same token shape.
func Normalize(token string) string {
	normalized := wsPattern.ReplaceAllString(strings.TrimSpace(token), " ")
	normalized = strings.ToUpper(normalized)
	return strings.Trim(normalized, " .")
}

// rule is one priority-ordered classification step. handled=false falls
// through to the next rule.
type rule func(normalized string) (ans domain.TypedAnswer, reason domain.ReasonCode, handled bool)

var rules = []rule{
	rejectUnsupportedLiteral,
	matchMCQ,
	matchMSQ,
	rejectStrayLetters,
	matchDegenerateRange,
	matchNumeric,
}

// Classify maps a raw answer token to a typed answer or a rejection reason.
// An empty reason means success.
func Classify(token string) (domain.TypedAnswer, domain.ReasonCode) {
	normalized := Normalize(token)
	if normalized == "" {
		return domain.TypedAnswer{}, domain.ReasonEmptyAnswerToken
	}
	for _, r := range rules {
		if ans, reason, handled := r(normalized); handled {
			return ans, reason
		}
	}
	return domain.TypedAnswer{}, domain.ReasonNotAValidNumericToken
}

func rejectUnsupportedLiteral(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	if _, ok := unsupportedLiterals[normalized]; ok {
		return domain.TypedAnswer{}, domain.ReasonUnsupportedLiteral, true
	}
	return domain.TypedAnswer{}, "", false
}

func matchMCQ(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	if !mcqPattern.MatchString(normalized) {
		return domain.TypedAnswer{}, "", false
	}
	option := strings.TrimSuffix(normalized, ".")
	return domain.TypedAnswer{Type: domain.TypeMCQ, Option: option}, "", true
}

func matchMSQ(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	if !strings.ContainsAny(normalized, ";,/") {
		return domain.TypedAnswer{}, "", false
	}

	candidate := strings.NewReplacer(",", ";", "/", ";").Replace(normalized)
	candidate = semiWSPattern.ReplaceAllString(candidate, ";")
	candidate = strings.Trim(candidate, ";")
	if candidate == "" {
		return domain.TypedAnswer{}, domain.ReasonEmptyAnswerToken, true
	}

	var parts []string
	for _, part := range strings.Split(candidate, ";") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return domain.TypedAnswer{}, domain.ReasonEmptyAnswerToken, true
	}
	for _, part := range parts {
		if !alphaPartPattern.MatchString(part) {
			return domain.TypedAnswer{}, domain.ReasonUnsupportedSeparatorPattern, true
		}
	}
	for _, part := range parts {
		if _, ok := validOptions[part]; !ok {
			return domain.TypedAnswer{}, domain.ReasonInvalidMCQOption, true
		}
	}

	deduped := dedupeFirstSeen(parts)
	if len(deduped) < 2 {
		// A separator token that collapses to a single option does not
		// denote a real multi-select.
		return domain.TypedAnswer{}, domain.ReasonUnsupportedSeparatorPattern, true
	}
	return domain.TypedAnswer{Type: domain.TypeMSQ, Options: deduped}, "", true
}

func rejectStrayLetters(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	if !upperLetterPattern.MatchString(normalized) {
		return domain.TypedAnswer{}, "", false
	}
	if len(normalized) == 1 {
		if _, ok := validOptions[normalized]; !ok {
			return domain.TypedAnswer{}, domain.ReasonInvalidMCQOption, true
		}
	}
	return domain.TypedAnswer{}, domain.ReasonLettersInNumericToken, true
}

func matchDegenerateRange(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	m := numericRangePattern.FindStringSubmatch(normalized)
	if m == nil {
		return domain.TypedAnswer{}, "", false
	}
	left, errL := strconv.ParseFloat(m[1], 64)
	right, errR := strconv.ParseFloat(m[2], 64)
	if errL != nil || errR != nil {
		return domain.TypedAnswer{}, domain.ReasonNATParseFailed, true
	}
	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	if diff > rangeEqualityEpsilon {
		return domain.TypedAnswer{}, domain.ReasonNATRangeMismatch, true
	}
	return domain.TypedAnswer{Type: domain.TypeNAT, Value: left}, "", true
}

func matchNumeric(normalized string) (domain.TypedAnswer, domain.ReasonCode, bool) {
	compact := strings.ReplaceAll(normalized, " ", "")
	if !numericPattern.MatchString(compact) {
		return domain.TypedAnswer{}, domain.ReasonNotAValidNumericToken, true
	}
	value, err := strconv.ParseFloat(compact, 64)
	if err != nil {
		return domain.TypedAnswer{}, domain.ReasonNATParseFailed, true
	}
	return domain.TypedAnswer{Type: domain.TypeNAT, Value: value}, "", true
}

func dedupeFirstSeen(parts []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
