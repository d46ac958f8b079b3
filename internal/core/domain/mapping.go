package domain

// IDURLPair links one printed identifier to the question URL found next to it
// on the same answer-key page.
type IDURLPair struct {
	IDStr       string `json:"id_str"`
	QuestionURL string `json:"question_url"`
}

type ManifestItem struct {
	Volume      int         `json:"volume"`
	PageNo      int         `json:"page_no"`
	PDFRef      string      `json:"pdf_ref,omitempty"`
	IDURLPairs  []IDURLPair `json:"id_url_pairs"`
	CountsMatch bool        `json:"counts_match"`
}

type Manifest struct {
	Items []ManifestItem `json:"items"`
}

type EvidenceSource string

const (
	EvidenceManifestLink   EvidenceSource = "manifest_link"
	EvidenceParsedLinkHint EvidenceSource = "parsed_link_hint"
	EvidenceManifestFuzzy  EvidenceSource = "manifest_fuzzy_subject_question"
	EvidenceOverride       EvidenceSource = "override"
)

// MappingCandidate is one piece of evidence linking an answer to a question.
// Collection keeps every candidate; only resolution deduplicates by target.
type MappingCandidate struct {
	AnswerUID      string         `json:"answer_uid"`
	QuestionUID    string         `json:"question_uid"`
	Source         EvidenceSource `json:"source"`
	QuestionIDHint string         `json:"question_id_hint,omitempty"`
	PageNo         int            `json:"page_no"`
}

// ResolvedMapping is the single accepted answer->question edge.
type ResolvedMapping struct {
	AnswerUID      string         `json:"answer_uid"`
	QuestionUID    string         `json:"question_uid"`
	Source         EvidenceSource `json:"source"`
	QuestionIDHint string         `json:"question_id_hint,omitempty"`
	IDStr          string         `json:"id_str"`
	Volume         int            `json:"volume"`
	PageNo         int            `json:"page_no"`
}

type UnresolvedMapping struct {
	AnswerUID      string     `json:"answer_uid"`
	IDStr          string     `json:"id_str"`
	Volume         int        `json:"volume"`
	PageNo         int        `json:"page_no"`
	QuestionIDHint string     `json:"question_id_hint,omitempty"`
	Reason         ReasonCode `json:"reason"`
	Candidates     []string   `json:"question_uid_candidates,omitempty"`
}

// QuestionAnswerConflict reports two distinct answer records resolving to the
// same question UID in the join table.
type QuestionAnswerConflict struct {
	QuestionUID          string     `json:"question_uid"`
	ExistingAnswerUID    string     `json:"existing_answer_uid"`
	ConflictingAnswerUID string     `json:"conflicting_answer_uid"`
	Reason               ReasonCode `json:"reason"`
}

type MappingStats struct {
	ParsedRecords          int            `json:"parsed_records"`
	Resolved               int            `json:"resolved"`
	Unresolved             int            `json:"unresolved"`
	UnresolvedInDataset    int            `json:"unresolved_in_dataset"`
	Conflicts              int            `json:"mapping_conflicts"`
	CoverageRatio          float64        `json:"coverage_ratio"`
	CoverageRatioInDataset float64        `json:"coverage_ratio_in_dataset"`
	UnresolvedReasonCounts map[string]int `json:"unresolved_reason_counts"`
}

// MappingReport holds the full three-way outcome of one mapping build.
// Every answer UID appears in exactly one of Resolved/Unresolved; conflicts
// between answers sharing a question UID are listed separately.
type MappingReport struct {
	Stats      MappingStats             `json:"stats"`
	Resolved   []ResolvedMapping        `json:"resolved"`
	Unresolved []UnresolvedMapping      `json:"unresolved"`
	Conflicts  []QuestionAnswerConflict `json:"conflicts"`
}
