// Package parse turns normalized identifier/answer rows into typed, UID-keyed
// answer records, routing everything unparseable to suspicious diagnostics.
package parse

import (
	"strconv"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/token"
)

// Options bound identifier fields and set the default NAT tolerance. Zero
// values take the defaults below.
type Options struct {
	NATToleranceAbs float64
	MaxChapterNo    int
	MaxSubjectCode  int
	MaxQuestionNo   int
}

func DefaultOptions() Options {
	return Options{
		NATToleranceAbs: 0.01,
		MaxChapterNo:    20,
		MaxSubjectCode:  120,
		MaxQuestionNo:   120,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	out := o
	if out.NATToleranceAbs <= 0 {
		out.NATToleranceAbs = def.NATToleranceAbs
	}
	if out.MaxChapterNo <= 0 {
		out.MaxChapterNo = def.MaxChapterNo
	}
	if out.MaxSubjectCode <= 0 {
		out.MaxSubjectCode = def.MaxSubjectCode
	}
	if out.MaxQuestionNo <= 0 {
		out.MaxQuestionNo = def.MaxQuestionNo
	}
	return out
}

// ParseRow classifies one normalized row. Exactly one of the returns is
// non-nil: the typed record, or the suspicious diagnostic explaining why the
// row was rejected.
func ParseRow(row domain.NormalizedRow, meta domain.PageMeta, opts Options) (*domain.AnswerRecord, *domain.SuspiciousLine) {
	opts = opts.normalize()

	id, ok := domain.ParseIDStr(row.IDStr)
	if !ok || id.ChapterNo > opts.MaxChapterNo ||
		id.SubjectCode > opts.MaxSubjectCode || id.QuestionNo > opts.MaxQuestionNo {
		return nil, &domain.SuspiciousLine{
			Volume:     meta.Volume,
			PageNo:     meta.PageNo,
			LineIndex:  domain.JoinLineIndexes(row.SourceLineIndexes),
			OCRLine:    row.RawText,
			ReasonCode: domain.ReasonInvalidIDFormat,
		}
	}

	answer, reason := token.Classify(row.AnswerRaw)
	if reason != "" {
		candidate := ""
		if row.IDStr != "" {
			candidate = domain.AnswerUID(meta.Volume, row.IDStr)
		}
		ocrLine := row.NormalizedText
		if ocrLine == "" {
			ocrLine = row.RawText
		}
		return nil, &domain.SuspiciousLine{
			Volume:       meta.Volume,
			PageNo:       meta.PageNo,
			LineIndex:    domain.JoinLineIndexes(row.SourceLineIndexes),
			OCRLine:      ocrLine,
			ReasonCode:   reason,
			CandidateUID: candidate,
		}
	}

	record := &domain.AnswerRecord{
		UID:    domain.AnswerUID(meta.Volume, row.IDStr),
		IDStr:  row.IDStr,
		Volume: meta.Volume,
		ID:     id,
		Answer: answer,
		Source: domain.AnswerSource{
			PDFRef:      pdfRef(meta.Volume),
			Page:        meta.PageNo,
			LineIndexes: row.SourceLineIndexes,
		},
		LinkHint: linkHintFor(meta.IDURLPairs, row.IDStr),
	}
	if answer.Type == domain.TypeNAT {
		record.Tolerance = &domain.Tolerance{Abs: opts.NATToleranceAbs}
	}
	return record, nil
}

func pdfRef(volume int) string {
	return "volume" + strconv.Itoa(volume)
}

func linkHintFor(pairs []domain.IDURLPair, idStr string) string {
	for _, pair := range pairs {
		if pair.IDStr == idStr {
			return pair.QuestionURL
		}
	}
	return ""
}
