package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

type AnswerType string

const (
	TypeMCQ AnswerType = "MCQ"
	TypeMSQ AnswerType = "MSQ"
	TypeNAT AnswerType = "NAT"
)

// IdentifierTriple is the (chapter, subject, question) numbering scheme the
// printed answer key uses to address a single answer.
type IdentifierTriple struct {
	ChapterNo   int `json:"chapter_no"`
	SubjectCode int `json:"subject_code"`
	QuestionNo  int `json:"question_no"`
}

func (t IdentifierTriple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.ChapterNo, t.SubjectCode, t.QuestionNo)
}

var idStrPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// ParseIDStr parses the canonical "chapter.subject.question" form. It does
// not apply field maxima; callers that need bounded fields check separately.
func ParseIDStr(idStr string) (IdentifierTriple, bool) {
	m := idStrPattern.FindStringSubmatch(idStr)
	if m == nil {
		return IdentifierTriple{}, false
	}
	chapter, _ := strconv.Atoi(m[1])
	subject, _ := strconv.Atoi(m[2])
	question, _ := strconv.Atoi(m[3])
	return IdentifierTriple{ChapterNo: chapter, SubjectCode: subject, QuestionNo: question}, true
}

// AnswerUID is the volume-qualified key for one parsed answer record.
func AnswerUID(volume int, idStr string) string {
	return fmt.Sprintf("v%d:%s", volume, idStr)
}

// TypedAnswer is the tagged union over the three supported answer shapes.
// Exactly one of Option/Options/Value is meaningful, selected by Type.
type TypedAnswer struct {
	Type    AnswerType `json:"type"`
	Option  string     `json:"option,omitempty"`
	Options []string   `json:"options,omitempty"`
	Value   float64    `json:"value,omitempty"`
}

func (a TypedAnswer) Equal(b TypedAnswer) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeMCQ:
		return a.Option == b.Option
	case TypeMSQ:
		if len(a.Options) != len(b.Options) {
			return false
		}
		for i := range a.Options {
			if a.Options[i] != b.Options[i] {
				return false
			}
		}
		return true
	case TypeNAT:
		return a.Value == b.Value
	}
	return false
}

// Raw returns the JSON-facing answer value: "A", ["A","B"] or 2.32.
func (a TypedAnswer) Raw() any {
	switch a.Type {
	case TypeMCQ:
		return a.Option
	case TypeMSQ:
		return a.Options
	case TypeNAT:
		return a.Value
	}
	return nil
}

type Tolerance struct {
	Abs float64 `json:"abs"`
}

type AnswerSource struct {
	PDFRef      string `json:"pdf"`
	Page        int    `json:"page"`
	LineIndexes []int  `json:"line_index"`
}

// AnswerRecord is immutable once emitted by the answer parser. A later row
// sharing the UID is either identical (coalesced) or a duplicate_uid_conflict.
type AnswerRecord struct {
	UID       string           `json:"uid"`
	IDStr     string           `json:"id_str"`
	Volume    int              `json:"volume"`
	ID        IdentifierTriple `json:"id"`
	Answer    TypedAnswer      `json:"answer"`
	Tolerance *Tolerance       `json:"tolerance,omitempty"`
	Source    AnswerSource     `json:"source"`
	LinkHint  string           `json:"link_hint,omitempty"`
}

// EquivalentTo reports whether two records for the same UID carry the same
// answer. Source positions may differ between reprints of the same key row.
func (r AnswerRecord) EquivalentTo(other AnswerRecord) bool {
	return r.IDStr == other.IDStr &&
		r.Volume == other.Volume &&
		r.Answer.Equal(other.Answer)
}
