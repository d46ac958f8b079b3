package normalize

import (
	"math"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
)

// pendingIdentifier is an identifier seen without an answer token on its own
// line. It waits in a FIFO for answer tokens on following lines and expires
// after the lookahead window.
type pendingIdentifier struct {
	idStr            string
	sourceLineIdxs   []int
	sourceText       []string
	confidenceValues []float64
	expiresAt        int
}

type scanner struct {
	meta       domain.PageMeta
	profile    Profile
	rows       []domain.NormalizedRow
	suspicious []domain.SuspiciousLine
	pending    []pendingIdentifier
}

// ScanPage walks the OCR lines of one page and produces normalized
// identifier/answer rows plus suspicious lines for everything that could not
// be paired. Identifiers without an inline answer wait up to
// profile.LookaheadLines lines for answer tokens; answer-like lines are
// assigned to waiting identifiers in order.
func ScanPage(lines []domain.OCRLine, meta domain.PageMeta, profile Profile) ([]domain.NormalizedRow, []domain.SuspiciousLine) {
	s := &scanner{meta: meta, profile: profile.normalize()}

	for idx, line := range lines {
		rawText := strings.TrimSpace(line.Text)
		if rawText == "" {
			continue
		}

		s.flushExpiredPending(idx)

		matches := findIDMatches(rawText, s.profile)
		if s.hasValidID(matches) {
			s.scanIdentifierLine(idx, line.LineIndex, rawText, line.Confidence, matches)
			continue
		}

		if looksLikeAnswerLine(rawText, s.profile) {
			s.scanAnswerLine(line.LineIndex, rawText, line.Confidence)
		}
	}

	s.flushExpiredPending(len(lines) + s.profile.LookaheadLines + 1)
	return s.rows, s.suspicious
}

func (s *scanner) hasValidID(matches []idMatch) bool {
	for _, m := range matches {
		if m.idStr != "" {
			return true
		}
	}
	return false
}

// scanIdentifierLine handles a line carrying one or more identifier triples.
// Tokens before the first identifier are assigned to pending identifiers;
// each identifier either pairs with the answer slice up to the next
// identifier or joins the pending FIFO.
func (s *scanner) scanIdentifierLine(idx, lineIndex int, rawText string, confidence float64, matches []idMatch) {
	firstValid := 0
	for matches[firstValid].idStr == "" {
		firstValid++
	}
	prefix := strings.TrimSpace(rawText[:matches[firstValid].start])
	if len(s.pending) > 0 && prefix != "" {
		tokens := splitAnswerTokens(prefix, s.profile.AnswerSeparators)
		assigned := s.assignTokensToPending(tokens, lineIndex, rawText, confidence)
		if assigned < len(tokens) {
			s.addSuspicious([]int{lineIndex}, rawText,
				domain.ReasonOrphanAnswerWithoutID,
				"extra answer tokens remained after assigning to pending ids", "")
		}
	}

	for i, m := range matches {
		if m.idStr == "" {
			continue
		}
		answerEnd := len(rawText)
		if i+1 < len(matches) {
			answerEnd = matches[i+1].start
		}
		answerToken := NormalizeAnswerCandidate(rawText[m.end:answerEnd], s.profile.AnswerSeparators)
		if answerToken != "" {
			s.emitRow(m.idStr, answerToken, []int{lineIndex}, []string{rawText}, []float64{confidence})
			continue
		}
		s.pending = append(s.pending, pendingIdentifier{
			idStr:            m.idStr,
			sourceLineIdxs:   []int{lineIndex},
			sourceText:       []string{rawText},
			confidenceValues: []float64{confidence},
			expiresAt:        idx + s.profile.LookaheadLines,
		})
	}
}

func (s *scanner) scanAnswerLine(lineIndex int, rawText string, confidence float64) {
	tokens := splitAnswerTokens(rawText, s.profile.AnswerSeparators)
	if len(s.pending) == 0 || len(tokens) == 0 {
		s.addSuspicious([]int{lineIndex}, rawText,
			domain.ReasonOrphanAnswerWithoutID,
			"answer-like line without detectable id_str", "")
		return
	}

	assigned := s.assignTokensToPending(tokens, lineIndex, rawText, confidence)
	if assigned < len(tokens) {
		s.addSuspicious([]int{lineIndex}, rawText,
			domain.ReasonOrphanAnswerWithoutID,
			"answer-like line had more tokens than pending ids", "")
	}
}

func (s *scanner) assignTokensToPending(tokens []string, lineIndex int, rawText string, confidence float64) int {
	assigned := 0
	for len(s.pending) > 0 && assigned < len(tokens) {
		item := s.pending[0]
		s.pending = s.pending[1:]
		s.emitRow(
			item.idStr,
			tokens[assigned],
			append(append([]int{}, item.sourceLineIdxs...), lineIndex),
			append(append([]string{}, item.sourceText...), rawText),
			append(append([]float64{}, item.confidenceValues...), confidence),
		)
		assigned++
	}
	return assigned
}

func (s *scanner) flushExpiredPending(currentIdx int) {
	for len(s.pending) > 0 && s.pending[0].expiresAt < currentIdx {
		item := s.pending[0]
		s.pending = s.pending[1:]
		s.addSuspicious(item.sourceLineIdxs, strings.Join(item.sourceText, " || "),
			domain.ReasonIDWithoutAnswer,
			"id_str detected but no answer token found before lookahead window expiry",
			item.idStr)
	}
}

func (s *scanner) emitRow(idStr, answerToken string, lineIdxs []int, sourceText []string, confidences []float64) {
	mean := 0.0
	if len(confidences) > 0 {
		for _, c := range confidences {
			mean += c
		}
		mean /= float64(len(confidences))
	}

	s.rows = append(s.rows, domain.NormalizedRow{
		RowIndex:          len(s.rows),
		SourceLineIndexes: lineIdxs,
		RawText:           strings.Join(sourceText, " || "),
		IDStr:             idStr,
		AnswerRaw:         answerToken,
		NormalizedText:    idStr + " " + answerToken,
		Volume:            s.meta.Volume,
		PageNo:            s.meta.PageNo,
		RowConfidence:     math.Round(mean*10000) / 10000,
	})
}

func (s *scanner) addSuspicious(lineIdxs []int, ocrLine string, reason domain.ReasonCode, detail, candidateUID string) {
	s.suspicious = append(s.suspicious, domain.SuspiciousLine{
		Volume:       s.meta.Volume,
		PageNo:       s.meta.PageNo,
		LineIndex:    domain.JoinLineIndexes(lineIdxs),
		OCRLine:      ocrLine,
		ReasonCode:   reason,
		ReasonDetail: detail,
		CandidateUID: candidateUID,
	})
}
