// Package mapping reconciles parsed answer records with the question catalog.
// Candidate collection gathers every piece of linking evidence; resolution
// reduces candidates to at most one question per answer and explains every
// failure to do so.
package mapping

import "github.com/examkit/answerkey/internal/core/domain"

// QuestionIndex holds the catalog lookups resolution needs: numeric site ID
// to question UID, and the set of known question UIDs.
type QuestionIndex struct {
	siteIDToUID map[string]string
	uids        map[string]struct{}
}

// BuildQuestionIndex assigns UIDs to catalog records that lack one and
// indexes them. The first record claiming a site ID keeps it.
func BuildQuestionIndex(questions []domain.QuestionRecord, siteHost string) (*QuestionIndex, []domain.QuestionRecord) {
	idx := &QuestionIndex{
		siteIDToUID: make(map[string]string),
		uids:        make(map[string]struct{}),
	}
	out := make([]domain.QuestionRecord, len(questions))
	for i, q := range questions {
		if q.QuestionUID == "" {
			q.QuestionUID = domain.QuestionUIDFor(q, siteHost)
		}
		idx.uids[q.QuestionUID] = struct{}{}

		if siteID := domain.ExtractSiteQuestionID(q.Link, siteHost); siteID != "" {
			if _, taken := idx.siteIDToUID[siteID]; !taken {
				idx.siteIDToUID[siteID] = q.QuestionUID
			}
		}
		out[i] = q
	}
	return idx, out
}

// UIDForSiteID returns the question UID a numeric site ID maps to.
func (x *QuestionIndex) UIDForSiteID(siteID string) (string, bool) {
	uid, ok := x.siteIDToUID[siteID]
	return uid, ok
}

// HasUID reports whether the catalog contains the question UID.
func (x *QuestionIndex) HasUID(uid string) bool {
	_, ok := x.uids[uid]
	return ok
}

// KnowsSiteID reports whether any catalog record carries the site ID.
func (x *QuestionIndex) KnowsSiteID(siteID string) bool {
	_, ok := x.siteIDToUID[siteID]
	return ok
}
