package mapping

import (
	"sort"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
)

// Overrides pins an answer UID to a question UID, bypassing evidence.
type Overrides map[string]string

// Resolve reduces the candidate set to a full mapping report. Every input
// record lands in exactly one of Resolved or Unresolved.
func Resolve(
	records []domain.AnswerRecord,
	candidates CandidateSet,
	overrides Overrides,
	index *QuestionIndex,
	siteHost string,
) domain.MappingReport {
	report := domain.MappingReport{
		Stats: domain.MappingStats{
			ParsedRecords:          len(records),
			UnresolvedReasonCounts: make(map[string]int),
		},
	}

	for _, record := range records {
		if record.UID == "" {
			continue
		}
		resolved, unresolved := resolveOne(record, candidates[record.UID], overrides[record.UID], index, siteHost)
		if resolved != nil {
			report.Resolved = append(report.Resolved, *resolved)
			continue
		}
		report.Unresolved = append(report.Unresolved, *unresolved)
		report.Stats.UnresolvedReasonCounts[string(unresolved.Reason)]++
		if unresolved.Reason != domain.ReasonQuestionIDNotInDataset && unresolved.Reason != domain.ReasonQuestionIDMissingHint {
			report.Stats.UnresolvedInDataset++
		}
	}

	report.Stats.Resolved = len(report.Resolved)
	report.Stats.Unresolved = len(report.Unresolved)
	if report.Stats.ParsedRecords > 0 {
		report.Stats.CoverageRatio = float64(report.Stats.Resolved) / float64(report.Stats.ParsedRecords)
	}
	if inDataset := report.Stats.Resolved + report.Stats.UnresolvedInDataset; inDataset > 0 {
		report.Stats.CoverageRatioInDataset = float64(report.Stats.Resolved) / float64(inDataset)
	}
	return report
}

func resolveOne(
	record domain.AnswerRecord,
	candidates []domain.MappingCandidate,
	overrideUID string,
	index *QuestionIndex,
	siteHost string,
) (*domain.ResolvedMapping, *domain.UnresolvedMapping) {
	// Candidates from the record's own page outrank evidence carried over
	// from other pages.
	var pageMatched []domain.MappingCandidate
	for _, c := range candidates {
		if c.PageNo == record.Source.Page {
			pageMatched = append(pageMatched, c)
		}
	}
	if len(pageMatched) > 0 {
		candidates = pageMatched
	}

	if overrideUID != "" {
		if !index.HasUID(overrideUID) {
			return nil, unresolvedFor(record, domain.ReasonOverrideTargetNotFound, distinctTargets(candidates), index, siteHost)
		}
		hint := ""
		if strings.HasPrefix(overrideUID, domain.SiteUIDPrefix) {
			hint = strings.TrimPrefix(overrideUID, domain.SiteUIDPrefix)
		}
		return &domain.ResolvedMapping{
			AnswerUID:      record.UID,
			QuestionUID:    overrideUID,
			Source:         domain.EvidenceOverride,
			QuestionIDHint: hint,
			IDStr:          record.IDStr,
			Volume:         record.Volume,
			PageNo:         record.Source.Page,
		}, nil
	}

	targets := distinctTargets(candidates)
	switch len(targets) {
	case 1:
		winner := targets[0]
		var source domain.EvidenceSource
		hint := ""
		for _, c := range candidates {
			if c.QuestionUID == winner {
				source = c.Source
				hint = c.QuestionIDHint
				break
			}
		}
		return &domain.ResolvedMapping{
			AnswerUID:      record.UID,
			QuestionUID:    winner,
			Source:         source,
			QuestionIDHint: hint,
			IDStr:          record.IDStr,
			Volume:         record.Volume,
			PageNo:         record.Source.Page,
		}, nil
	case 0:
		return nil, unresolvedFor(record, domain.ReasonNoMappingToQuestion, nil, index, siteHost)
	default:
		return nil, unresolvedFor(record, domain.ReasonMappingConflict, targets, index, siteHost)
	}
}

// unresolvedFor refines a bare no_mapping_to_question into the reason review
// tooling can act on: the hinted question is absent from the catalog, or the
// record never had a hint at all.
func unresolvedFor(
	record domain.AnswerRecord,
	reason domain.ReasonCode,
	candidateUIDs []string,
	index *QuestionIndex,
	siteHost string,
) *domain.UnresolvedMapping {
	hint := domain.ExtractSiteQuestionID(record.LinkHint, siteHost)
	if reason == domain.ReasonNoMappingToQuestion {
		switch {
		case hint != "" && !index.KnowsSiteID(hint):
			reason = domain.ReasonQuestionIDNotInDataset
		case hint == "":
			reason = domain.ReasonQuestionIDMissingHint
		}
	}
	return &domain.UnresolvedMapping{
		AnswerUID:      record.UID,
		IDStr:          record.IDStr,
		Volume:         record.Volume,
		PageNo:         record.Source.Page,
		QuestionIDHint: hint,
		Reason:         reason,
		Candidates:     candidateUIDs,
	}
}

func distinctTargets(candidates []domain.MappingCandidate) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range candidates {
		if c.QuestionUID == "" {
			continue
		}
		if _, ok := seen[c.QuestionUID]; ok {
			continue
		}
		seen[c.QuestionUID] = struct{}{}
		out = append(out, c.QuestionUID)
	}
	sort.Strings(out)
	return out
}

// QuestionAnswer is one row of the question-keyed join table.
type QuestionAnswer struct {
	AnswerUID string              `json:"answer_uid"`
	Answer    domain.TypedAnswer  `json:"answer"`
	Tolerance *domain.Tolerance   `json:"tolerance,omitempty"`
	Source    domain.AnswerSource `json:"source"`
}

// BuildQuestionJoin inverts the resolved mapping into question UID keyed
// answers. Two distinct answers resolving to one question are reported as a
// conflict; the first keeps the slot.
func BuildQuestionJoin(
	records []domain.AnswerRecord,
	resolved []domain.ResolvedMapping,
) (map[string]QuestionAnswer, []domain.QuestionAnswerConflict) {
	byUID := make(map[string]domain.AnswerRecord, len(records))
	for _, record := range records {
		if record.UID != "" {
			byUID[record.UID] = record
		}
	}

	join := make(map[string]QuestionAnswer)
	var conflicts []domain.QuestionAnswerConflict
	for _, m := range resolved {
		if m.AnswerUID == "" || m.QuestionUID == "" {
			continue
		}
		record, ok := byUID[m.AnswerUID]
		if !ok {
			continue
		}
		existing, taken := join[m.QuestionUID]
		if !taken {
			join[m.QuestionUID] = QuestionAnswer{
				AnswerUID: record.UID,
				Answer:    record.Answer,
				Tolerance: record.Tolerance,
				Source:    record.Source,
			}
			continue
		}
		if existing.AnswerUID == record.UID {
			continue
		}
		conflicts = append(conflicts, domain.QuestionAnswerConflict{
			QuestionUID:          m.QuestionUID,
			ExistingAnswerUID:    existing.AnswerUID,
			ConflictingAnswerUID: record.UID,
			Reason:               domain.ReasonQuestionMultipleAnswers,
		})
	}
	return join, conflicts
}
