package token

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
)

var (
	looseRangePattern   = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)\s*:\s*([+-]?\d+(?:\.\d+)?)$`)
	looseNumericPattern = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
	looseSeparator      = regexp.MustCompile(`[;,/]|\s+`)
	bracketReplacer     = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ", "$", " ")
)

const degenerateRangeEpsilon = 1e-12

// BackfillAnswer is the outcome of the loose token policy used when
// backfilling answers from catalog text rather than OCR output.
type BackfillAnswer struct {
	Answer       domain.TypedAnswer
	ToleranceAbs float64 // meaningful for NAT only
}

// ParseBackfill applies the midpoint-with-derived-tolerance policy: a real
// range lo:hi becomes NAT((lo+hi)/2) with tolerance |hi-lo|/2, falling back
// to the default tolerance when the range is degenerate. This deliberately
// differs from Classify, which refuses non-degenerate ranges outright.
func ParseBackfill(raw string, defaultTolerance float64) (BackfillAnswer, bool) {
	tok := normalizeBackfillToken(raw)
	if tok == "" {
		return BackfillAnswer{}, false
	}

	if m := looseRangePattern.FindStringSubmatch(tok); m != nil {
		lower, errL := strconv.ParseFloat(m[1], 64)
		upper, errR := strconv.ParseFloat(m[2], 64)
		if errL != nil || errR != nil {
			return BackfillAnswer{}, false
		}
		if lower > upper {
			lower, upper = upper, lower
		}
		tolerance := (upper - lower) / 2.0
		if tolerance < degenerateRangeEpsilon {
			tolerance = defaultTolerance
		}
		return BackfillAnswer{
			Answer:       domain.TypedAnswer{Type: domain.TypeNAT, Value: (lower + upper) / 2.0},
			ToleranceAbs: tolerance,
		}, true
	}

	parts := splitLooseParts(tok)
	if len(parts) > 1 && allValidOptions(parts) {
		deduped := dedupeFirstSeen(parts)
		if len(deduped) >= 2 {
			return BackfillAnswer{
				Answer: domain.TypedAnswer{Type: domain.TypeMSQ, Options: deduped},
			}, true
		}
	}

	if _, ok := validOptions[tok]; ok {
		return BackfillAnswer{
			Answer: domain.TypedAnswer{Type: domain.TypeMCQ, Option: tok},
		}, true
	}

	if looseNumericPattern.MatchString(tok) {
		value, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return BackfillAnswer{}, false
		}
		return BackfillAnswer{
			Answer:       domain.TypedAnswer{Type: domain.TypeNAT, Value: value},
			ToleranceAbs: defaultTolerance,
		}, true
	}

	return BackfillAnswer{}, false
}

func normalizeBackfillToken(raw string) string {
	tok := strings.ToUpper(strings.TrimSpace(raw))
	tok = bracketReplacer.Replace(tok)
	return strings.TrimSpace(wsPattern.ReplaceAllString(tok, " "))
}

func splitLooseParts(tok string) []string {
	var parts []string
	for _, part := range looseSeparator.Split(tok, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func allValidOptions(parts []string) bool {
	for _, part := range parts {
		if _, ok := validOptions[part]; !ok {
			return false
		}
	}
	return true
}
