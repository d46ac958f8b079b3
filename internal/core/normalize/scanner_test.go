package normalize

import (
	"testing"

	"github.com/examkit/answerkey/internal/core/domain"
)

var testMeta = domain.PageMeta{Volume: 2, PageNo: 91}

func scan(t *testing.T, lines []domain.OCRLine) ([]domain.NormalizedRow, []domain.SuspiciousLine) {
	t.Helper()
	return ScanPage(lines, testMeta, Profile{})
}

func TestScanPageInlineIdentifierAndAnswer(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.27.26 2.32", Confidence: 0.93},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.IDStr != "1.27.26" || row.AnswerRaw != "2.32" {
		t.Fatalf("row = %+v", row)
	}
	if row.NormalizedText != "1.27.26 2.32" {
		t.Fatalf("normalized_text = %q", row.NormalizedText)
	}
	if row.Volume != 2 || row.PageNo != 91 || row.RowConfidence != 0.93 {
		t.Fatalf("row meta = %+v", row)
	}
}

func TestScanPagePairsIdentifierWithNextAnswerLine(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.27.26", Confidence: 0.9},
		{LineIndex: 1, Text: "2.32", Confidence: 0.8},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.IDStr != "1.27.26" || row.AnswerRaw != "2.32" {
		t.Fatalf("row = %+v", row)
	}
	if row.RawText != "1.27.26 || 2.32" {
		t.Fatalf("raw_text = %q", row.RawText)
	}
	if len(row.SourceLineIndexes) != 2 || row.SourceLineIndexes[0] != 0 || row.SourceLineIndexes[1] != 1 {
		t.Fatalf("source_line_indexes = %v", row.SourceLineIndexes)
	}
	if row.RowConfidence != 0.85 {
		t.Fatalf("row_confidence = %v, want mean 0.85", row.RowConfidence)
	}
}

func TestScanPageMultipleIdentifiersOnOneLine(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.2.3 A 1.2.4 B", Confidence: 0.9},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].IDStr != "1.2.3" || rows[0].AnswerRaw != "A" {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if rows[1].IDStr != "1.2.4" || rows[1].AnswerRaw != "B" {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
}

func TestScanPageRepairsDigitGlyphsInIdentifier(t *testing.T) {
	rows, _ := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.27.2O A", Confidence: 0.7},
	})
	if len(rows) != 1 || rows[0].IDStr != "1.27.20" {
		t.Fatalf("rows = %+v, want id_str 1.27.20", rows)
	}
}

func TestScanPageIdentifierWithoutAnswerGoesSuspicious(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.24.30", Confidence: 0.9},
	})
	if len(rows) != 0 {
		t.Fatalf("rows = %+v, want none", rows)
	}
	if len(suspicious) != 1 {
		t.Fatalf("suspicious = %d entries, want 1", len(suspicious))
	}
	got := suspicious[0]
	if got.ReasonCode != domain.ReasonIDWithoutAnswer {
		t.Fatalf("reason = %q", got.ReasonCode)
	}
	if got.CandidateUID != "1.24.30" {
		t.Fatalf("candidate_uid = %q", got.CandidateUID)
	}
	if got.Volume != 2 || got.PageNo != 91 || got.LineIndex != "0" {
		t.Fatalf("suspicious = %+v", got)
	}
}

func TestScanPageOrphanAnswerGoesSuspicious(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "A;B;C", Confidence: 0.9},
	})
	if len(rows) != 0 {
		t.Fatalf("rows = %+v, want none", rows)
	}
	if len(suspicious) != 1 || suspicious[0].ReasonCode != domain.ReasonOrphanAnswerWithoutID {
		t.Fatalf("suspicious = %+v", suspicious)
	}
}

func TestScanPageLookaheadExpiryBeforeLateAnswer(t *testing.T) {
	// The answer arrives after the lookahead window, so the identifier
	// expires first and the late token is orphaned.
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.5.6", Confidence: 0.9},
		{LineIndex: 1, Text: "some unrelated heading text here today okay fine", Confidence: 0.9},
		{LineIndex: 2, Text: "", Confidence: 0},
		{LineIndex: 3, Text: "", Confidence: 0},
		{LineIndex: 4, Text: "", Confidence: 0},
		{LineIndex: 5, Text: "", Confidence: 0},
		{LineIndex: 6, Text: "3.14", Confidence: 0.9},
	})
	if len(rows) != 0 {
		t.Fatalf("rows = %+v, want none", rows)
	}
	if len(suspicious) != 2 {
		t.Fatalf("suspicious = %+v, want expiry plus orphan", suspicious)
	}
	if suspicious[0].ReasonCode != domain.ReasonIDWithoutAnswer {
		t.Fatalf("suspicious[0] = %+v", suspicious[0])
	}
	if suspicious[1].ReasonCode != domain.ReasonOrphanAnswerWithoutID {
		t.Fatalf("suspicious[1] = %+v", suspicious[1])
	}
}

func TestScanPageAnswerWithinLookaheadStillPairs(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.5.6", Confidence: 0.9},
		{LineIndex: 1, Text: "", Confidence: 0},
		{LineIndex: 2, Text: "", Confidence: 0},
		{LineIndex: 3, Text: "", Confidence: 0},
		{LineIndex: 4, Text: "3.14", Confidence: 0.7},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 1 || rows[0].IDStr != "1.5.6" || rows[0].AnswerRaw != "3.14" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestScanPagePendingIdentifiersAssignedInOrder(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.2.3", Confidence: 0.9},
		{LineIndex: 1, Text: "1.2.4", Confidence: 0.9},
		{LineIndex: 2, Text: "2.5 3.5", Confidence: 0.9},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].IDStr != "1.2.3" || rows[0].AnswerRaw != "2.5" {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if rows[1].IDStr != "1.2.4" || rows[1].AnswerRaw != "3.5" {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
}

func TestScanPagePrefixTokensAssignedBeforeNewIdentifier(t *testing.T) {
	rows, suspicious := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.2.3", Confidence: 0.9},
		{LineIndex: 1, Text: "7.5 1.2.4 C", Confidence: 0.9},
	})
	if len(suspicious) != 0 {
		t.Fatalf("suspicious = %+v, want none", suspicious)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].IDStr != "1.2.3" || rows[0].AnswerRaw != "7.5" {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if rows[1].IDStr != "1.2.4" || rows[1].AnswerRaw != "C" {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
}

func TestScanPageOutOfRangeSubjectIsNotAnIdentifier(t *testing.T) {
	rows, _ := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.927.26 A", Confidence: 0.9},
	})
	for _, row := range rows {
		if row.IDStr == "1.927.26" {
			t.Fatalf("out-of-range subject produced a row: %+v", row)
		}
	}
}

func TestScanPageDottedOptionsNormalizeToMultiSelect(t *testing.T) {
	rows, _ := scan(t, []domain.OCRLine{
		{LineIndex: 0, Text: "1.2.3 A.C", Confidence: 0.9},
	})
	if len(rows) != 1 || rows[0].AnswerRaw != "A;C" {
		t.Fatalf("rows = %+v, want answer_raw A;C", rows)
	}
}

func TestNormalizeAnswerCandidate(t *testing.T) {
	seps := DefaultProfile().AnswerSeparators
	cases := []struct {
		in, want string
	}{
		{"  a , c ", "A;C"},
		{"(2.32)", "2.32"},
		{"n / a", "N/A"},
		{"2.5 : 3.5", "2.5:3.5"},
		{"O.5", "0.5"},
		{"...", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeAnswerCandidate(tc.in, seps); got != tc.want {
			t.Fatalf("NormalizeAnswerCandidate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLooksLikeAnswerLine(t *testing.T) {
	profile := DefaultProfile()
	accepts := []string{"A", "2.32", "A;B;C", "2.5:3.5", "-0.5"}
	for _, line := range accepts {
		if !looksLikeAnswerLine(line, profile) {
			t.Fatalf("looksLikeAnswerLine(%q) = false, want true", line)
		}
	}
	rejects := []string{
		"",
		"CHAPTER TWENTY SEVEN",
		"QUESTION BANK",
		"x = y + 2",
		"this line has way too many little words in it",
	}
	for _, line := range rejects {
		if looksLikeAnswerLine(line, profile) {
			t.Fatalf("looksLikeAnswerLine(%q) = true, want false", line)
		}
	}
}
