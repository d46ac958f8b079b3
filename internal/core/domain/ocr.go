package domain

import (
	"strconv"
	"strings"
	"time"
)

// OCRLine is one line of OCR output for a page, consumed once per scan.
type OCRLine struct {
	LineIndex  int     `json:"line_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// PageMeta identifies the page a set of OCR lines came from. IDURLPairs carry
// the manifest's identifier/question-URL pairs for the same page, when known.
type PageMeta struct {
	Volume     int         `json:"volume"`
	PageNo     int         `json:"page_no"`
	IDURLPairs []IDURLPair `json:"id_url_pairs,omitempty"`
}

// PagePayload is the wire shape submitted to the ingest API and stored in
// object storage until the worker picks it up.
type PagePayload struct {
	Meta  PageMeta  `json:"meta"`
	Lines []OCRLine `json:"lines"`
}

type PageStatus string

const (
	PageUploaded PageStatus = "uploaded"
	PageParsing  PageStatus = "parsing"
	PageParsed   PageStatus = "parsed"
	PageFailed   PageStatus = "failed"
)

type Page struct {
	ID          string     `json:"id"`
	Volume      int        `json:"volume"`
	PageNo      int        `json:"page_no"`
	StoragePath string     `json:"storage_path"`
	Status      PageStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	RowCount    int        `json:"row_count"`
	Suspicious  int        `json:"suspicious_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NormalizedRow pairs one identifier with one raw answer token.
type NormalizedRow struct {
	RowIndex          int     `json:"row_index"`
	SourceLineIndexes []int   `json:"source_line_indexes"`
	RawText           string  `json:"raw_text"`
	IDStr             string  `json:"id_str"`
	AnswerRaw         string  `json:"answer_raw"`
	NormalizedText    string  `json:"normalized_text"`
	Volume            int     `json:"volume"`
	PageNo            int     `json:"page_no"`
	RowConfidence     float64 `json:"row_confidence"`
}

type ReasonCode string

const (
	// Line level.
	ReasonIDWithoutAnswer       ReasonCode = "id_without_answer"
	ReasonOrphanAnswerWithoutID ReasonCode = "orphan_answer_without_id"

	// Token level.
	ReasonEmptyAnswerToken            ReasonCode = "empty_answer_token"
	ReasonUnsupportedLiteral          ReasonCode = "unsupported_literal"
	ReasonUnsupportedSeparatorPattern ReasonCode = "unsupported_separator_pattern"
	ReasonInvalidMCQOption            ReasonCode = "invalid_mcq_option"
	ReasonLettersInNumericToken       ReasonCode = "letters_present_in_numeric_token"
	ReasonNATRangeMismatch            ReasonCode = "nat_range_mismatch"
	ReasonNotAValidNumericToken       ReasonCode = "not_a_valid_numeric_token"
	ReasonNATParseFailed              ReasonCode = "nat_parse_failed"

	// Record level.
	ReasonInvalidIDFormat      ReasonCode = "invalid_id_format"
	ReasonDuplicateUIDConflict ReasonCode = "duplicate_uid_conflict"

	// Mapping level.
	ReasonOverrideTargetNotFound  ReasonCode = "override_target_not_found"
	ReasonNoMappingToQuestion     ReasonCode = "no_mapping_to_question"
	ReasonMappingConflict         ReasonCode = "mapping_conflict"
	ReasonQuestionIDNotInDataset  ReasonCode = "question_id_not_in_questions_dataset"
	ReasonQuestionIDMissingHint   ReasonCode = "question_id_missing_hint"
	ReasonQuestionMultipleAnswers ReasonCode = "question_uid_multiple_answers"
)

// SuspiciousLine is the diagnostic record for anything the pipeline could not
// confidently turn into a row or record. Never silently dropped.
type SuspiciousLine struct {
	Volume       int        `json:"volume"`
	PageNo       int        `json:"page_no"`
	LineIndex    string     `json:"line_index"`
	OCRLine      string     `json:"ocr_line"`
	ReasonCode   ReasonCode `json:"reason_code"`
	ReasonDetail string     `json:"reason_detail,omitempty"`
	CandidateUID string     `json:"candidate_uid,omitempty"`
}

// JoinLineIndexes renders source line indexes the way review tooling expects.
func JoinLineIndexes(indexes []int) string {
	parts := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, ",")
}
