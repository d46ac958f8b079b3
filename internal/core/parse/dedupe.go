package parse

import "github.com/examkit/answerkey/internal/core/domain"

// Deduper enforces first-record-wins per UID across a parse run. An identical
// later record is coalesced; a differing one becomes a duplicate_uid_conflict.
type Deduper struct {
	seen map[string]domain.AnswerRecord
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]domain.AnswerRecord)}
}

// Add returns (true, nil) when the record is new, (false, nil) when it
// repeats an equivalent record, and (false, conflict) when it contradicts the
// record already held for the UID.
func (d *Deduper) Add(record domain.AnswerRecord, normalizedText string) (bool, *domain.SuspiciousLine) {
	current, ok := d.seen[record.UID]
	if !ok {
		d.seen[record.UID] = record
		return true, nil
	}
	if current.EquivalentTo(record) {
		return false, nil
	}
	return false, &domain.SuspiciousLine{
		Volume:       record.Volume,
		PageNo:       record.Source.Page,
		LineIndex:    domain.JoinLineIndexes(record.Source.LineIndexes),
		OCRLine:      normalizedText,
		ReasonCode:   domain.ReasonDuplicateUIDConflict,
		CandidateUID: record.UID,
	}
}

// Records returns the accepted records keyed by UID.
func (d *Deduper) Records() map[string]domain.AnswerRecord {
	return d.seen
}
