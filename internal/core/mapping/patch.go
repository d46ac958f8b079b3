package mapping

import (
	"strconv"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
)

// PatchEntry is one manually curated answer keyed by question UID. Answer is
// the raw JSON value: a string for MCQ, a string or list for MSQ, a number
// for NAT.
type PatchEntry struct {
	Type      string            `json:"type"`
	Answer    any               `json:"answer"`
	Tolerance *domain.Tolerance `json:"tolerance,omitempty"`
}

// InvalidPatch reports a patch entry that failed validation and was not
// applied.
type InvalidPatch struct {
	QuestionUID string            `json:"question_uid"`
	Reason      domain.ReasonCode `json:"reason"`
}

const (
	ReasonInvalidPatchRecord domain.ReasonCode = "invalid_patch_record"
	ReasonInvalidType        domain.ReasonCode = "invalid_type"
	ReasonInvalidMCQAnswer   domain.ReasonCode = "invalid_mcq_answer"
	ReasonInvalidMSQAnswer   domain.ReasonCode = "invalid_msq_answer"
	ReasonInvalidNATAnswer   domain.ReasonCode = "invalid_nat_answer"
)

const manualPDFRef = "manual_patch"

// ApplyManualPatch overwrites join-table entries with validated patch
// records. Invalid entries are reported and never applied. Returns the number
// applied.
func ApplyManualPatch(join map[string]QuestionAnswer, patch map[string]PatchEntry, natToleranceAbs float64) (int, []InvalidPatch) {
	applied := 0
	var invalid []InvalidPatch
	for questionUID, entry := range patch {
		uid := strings.TrimSpace(questionUID)
		if uid == "" {
			invalid = append(invalid, InvalidPatch{QuestionUID: uid, Reason: ReasonInvalidPatchRecord})
			continue
		}
		record, reason := validatePatchEntry(uid, entry, natToleranceAbs)
		if reason != "" {
			invalid = append(invalid, InvalidPatch{QuestionUID: uid, Reason: reason})
			continue
		}
		join[uid] = record
		applied++
	}
	return applied, invalid
}

func validatePatchEntry(questionUID string, entry PatchEntry, natToleranceAbs float64) (QuestionAnswer, domain.ReasonCode) {
	base := QuestionAnswer{
		AnswerUID: "manual:" + questionUID,
		Source:    domain.AnswerSource{PDFRef: manualPDFRef},
	}

	switch strings.ToUpper(strings.TrimSpace(entry.Type)) {
	case string(domain.TypeMCQ):
		option, _ := entry.Answer.(string)
		option = strings.ToUpper(strings.TrimSpace(option))
		if !isOption(option) {
			return QuestionAnswer{}, ReasonInvalidMCQAnswer
		}
		base.Answer = domain.TypedAnswer{Type: domain.TypeMCQ, Option: option}
		return base, ""

	case string(domain.TypeMSQ):
		options, ok := patchMSQOptions(entry.Answer)
		if !ok {
			return QuestionAnswer{}, ReasonInvalidMSQAnswer
		}
		base.Answer = domain.TypedAnswer{Type: domain.TypeMSQ, Options: options}
		return base, ""

	case string(domain.TypeNAT):
		value, ok := patchNATValue(entry.Answer)
		if !ok {
			return QuestionAnswer{}, ReasonInvalidNATAnswer
		}
		tol := natToleranceAbs
		if entry.Tolerance != nil && entry.Tolerance.Abs > 0 {
			tol = entry.Tolerance.Abs
		}
		base.Answer = domain.TypedAnswer{Type: domain.TypeNAT, Value: value}
		base.Tolerance = &domain.Tolerance{Abs: tol}
		return base, ""
	}
	return QuestionAnswer{}, ReasonInvalidType
}

func patchMSQOptions(raw any) ([]string, bool) {
	var candidates []string
	switch v := raw.(type) {
	case string:
		normalized := strings.ReplaceAll(v, ",", ";")
		for _, part := range strings.Split(normalized, ";") {
			candidates = append(candidates, strings.ToUpper(strings.TrimSpace(part)))
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			candidates = append(candidates, strings.ToUpper(strings.TrimSpace(s)))
		}
	case []string:
		for _, item := range v {
			candidates = append(candidates, strings.ToUpper(strings.TrimSpace(item)))
		}
	default:
		return nil, false
	}

	var deduped []string
	for _, token := range candidates {
		if !isOption(token) {
			return nil, false
		}
		if !contains(deduped, token) {
			deduped = append(deduped, token)
		}
	}
	if len(deduped) < 2 {
		return nil, false
	}
	return deduped, true
}

func patchNATValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		value, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	return 0, false
}

func isOption(token string) bool {
	return len(token) == 1 && token[0] >= 'A' && token[0] <= 'D'
}

func contains(list []string, token string) bool {
	for _, item := range list {
		if item == token {
			return true
		}
	}
	return false
}
