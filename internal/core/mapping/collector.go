package mapping

import "github.com/examkit/answerkey/internal/core/domain"

// CandidateSet accumulates mapping evidence per answer UID, preserving the
// order channels contribute in.
type CandidateSet map[string][]domain.MappingCandidate

// CollectCandidates runs all three evidence channels over the manifest and
// the parsed records.
func CollectCandidates(
	records []domain.AnswerRecord,
	manifest domain.Manifest,
	index *QuestionIndex,
	siteHost string,
) CandidateSet {
	set := make(CandidateSet)
	collectManifestLinks(set, manifest, index, siteHost)
	collectRecordHints(set, records, index, siteHost)
	collectManifestFuzzy(set, records, manifest, index, siteHost)
	return set
}

// collectManifestLinks pairs each manifest identifier with the question its
// printed URL points at.
func collectManifestLinks(set CandidateSet, manifest domain.Manifest, index *QuestionIndex, siteHost string) {
	for _, item := range manifest.Items {
		for _, pair := range item.IDURLPairs {
			if pair.IDStr == "" {
				continue
			}
			siteID := domain.ExtractSiteQuestionID(pair.QuestionURL, siteHost)
			if siteID == "" {
				continue
			}
			questionUID, ok := index.UIDForSiteID(siteID)
			if !ok {
				continue
			}
			answerUID := domain.AnswerUID(item.Volume, pair.IDStr)
			set[answerUID] = append(set[answerUID], domain.MappingCandidate{
				AnswerUID:      answerUID,
				QuestionUID:    questionUID,
				Source:         domain.EvidenceManifestLink,
				QuestionIDHint: siteID,
				PageNo:         item.PageNo,
			})
		}
	}
}

// collectRecordHints uses the link hint the answer parser attached to each
// record.
func collectRecordHints(set CandidateSet, records []domain.AnswerRecord, index *QuestionIndex, siteHost string) {
	for _, record := range records {
		if record.UID == "" {
			continue
		}
		siteID := domain.ExtractSiteQuestionID(record.LinkHint, siteHost)
		if siteID == "" {
			continue
		}
		questionUID, ok := index.UIDForSiteID(siteID)
		if !ok {
			continue
		}
		set[record.UID] = append(set[record.UID], domain.MappingCandidate{
			AnswerUID:      record.UID,
			QuestionUID:    questionUID,
			Source:         domain.EvidenceParsedLinkHint,
			QuestionIDHint: siteID,
			PageNo:         record.Source.Page,
		})
	}
}

type pageKey struct {
	volume int
	pageNo int
}

// collectManifestFuzzy matches a record against its page's manifest pairs by
// (subject, question) alone, tolerating a misread chapter number. Only a
// unique match on the page counts as evidence.
func collectManifestFuzzy(set CandidateSet, records []domain.AnswerRecord, manifest domain.Manifest, index *QuestionIndex, siteHost string) {
	pairsByPage := make(map[pageKey][]domain.IDURLPair)
	for _, item := range manifest.Items {
		pairsByPage[pageKey{volume: item.Volume, pageNo: item.PageNo}] = item.IDURLPairs
	}

	for _, record := range records {
		if record.UID == "" {
			continue
		}
		pagePairs := pairsByPage[pageKey{volume: record.Volume, pageNo: record.Source.Page}]
		if len(pagePairs) == 0 {
			continue
		}

		var matched []domain.IDURLPair
		for _, pair := range pagePairs {
			pairID, ok := domain.ParseIDStr(pair.IDStr)
			if !ok {
				continue
			}
			if pairID.SubjectCode == record.ID.SubjectCode && pairID.QuestionNo == record.ID.QuestionNo {
				matched = append(matched, pair)
			}
		}
		if len(matched) != 1 {
			continue
		}

		siteID := domain.ExtractSiteQuestionID(matched[0].QuestionURL, siteHost)
		if siteID == "" {
			continue
		}
		questionUID, ok := index.UIDForSiteID(siteID)
		if !ok {
			continue
		}
		set[record.UID] = append(set[record.UID], domain.MappingCandidate{
			AnswerUID:      record.UID,
			QuestionUID:    questionUID,
			Source:         domain.EvidenceManifestFuzzy,
			QuestionIDHint: siteID,
			PageNo:         record.Source.Page,
		})
	}
}
