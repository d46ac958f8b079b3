package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Identifier and answer grammar for noisy OCR text. The digit groups accept
// the glyphs OCR most often confuses with digits; glyph repair happens after
// matching so the raw span is preserved for diagnostics.
var (
	idTriplePattern = regexp.MustCompile(`([0-9OolI|]{1,3})\s*[.:,]\s*([0-9OolI|]{1,4})\s*[.:,]\s*([0-9OolI|]{1,4})`)
	headerLike      = regexp.MustCompile(`^[A-Z0-9\s]{8,}$`)
	answerish       = regexp.MustCompile(`^[A-Za-z0-9;:.,/+=\-\s]+$`)
	numericOrRange  = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?::[+-]?(?:\d+(?:\.\d*)?|\.\d+))?$`)
	msqLoose        = regexp.MustCompile(`^[A-D](?:[;,/][A-D])+$`)
	answerToken     = regexp.MustCompile(`N\s*/\s*A|NA|[A-D](?:\s*[;,/]\s*[A-D])+|[A-D]|[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:\s*:\s*[+-]?(?:\d+(?:\.\d*)?|\.\d+))?`)

	multiUpper    = regexp.MustCompile(`[A-Z]{2,}`)
	answerChar    = regexp.MustCompile(`[A-D0-9]`)
	anyDigit      = regexp.MustCompile(`\d`)
	nonDigit      = regexp.MustCompile(`\D`)
	wsRun         = regexp.MustCompile(`\s+`)
	semiAroundWS  = regexp.MustCompile(`\s*;\s*`)
	colonAroundWS = regexp.MustCompile(`\s*:\s*`)
	leadingJunk   = regexp.MustCompile(`^[\]\[(){}<>:=]+`)
	trailingJunk  = regexp.MustCompile(`[\]\[(){}<>]+$`)

	glyphRepairer = strings.NewReplacer("O", "0", "o", "0", "I", "1", "l", "1", "|", "1")
)

func repairDigitGlyphs(text string) string {
	return glyphRepairer.Replace(text)
}

func normalizeWS(text string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(text, " "))
}

// idMatch is one raw identifier-shaped span. IDStr is empty when the fields
// fail glyph repair or the configured maxima.
type idMatch struct {
	start, end int
	idStr      string
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// findIDMatches scans for identifier triples, requiring the span to not abut
// a digit on either side so fragments of longer numbers are not misread as
// identifiers.
func findIDMatches(raw string, profile Profile) []idMatch {
	var out []idMatch
	for _, loc := range idTriplePattern.FindAllStringSubmatchIndex(raw, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isASCIIDigit(raw[start-1]) {
			continue
		}
		if end < len(raw) && isASCIIDigit(raw[end]) {
			continue
		}
		idStr := normalizeIDFields(
			raw[loc[2]:loc[3]],
			raw[loc[4]:loc[5]],
			raw[loc[6]:loc[7]],
			profile,
		)
		out = append(out, idMatch{start: start, end: end, idStr: idStr})
	}
	return out
}

func normalizeIDFields(a, b, c string, profile Profile) string {
	fields := [3]int{}
	for i, part := range []string{a, b, c} {
		digits := nonDigit.ReplaceAllString(repairDigitGlyphs(part), "")
		if digits == "" {
			return ""
		}
		value, err := strconv.Atoi(digits)
		if err != nil || value <= 0 {
			return ""
		}
		fields[i] = value
	}
	if fields[0] > profile.MaxChapterNo || fields[1] > profile.MaxSubjectCode || fields[2] > profile.MaxQuestionNo {
		return ""
	}
	return strconv.Itoa(fields[0]) + "." + strconv.Itoa(fields[1]) + "." + strconv.Itoa(fields[2])
}

func containsIDTriple(text string, profile Profile) bool {
	return len(findIDMatches(text, profile)) > 0
}

// NormalizeAnswerCandidate cleans a raw answer slice into a canonical token:
// uppercased, digit glyphs repaired, separators collapsed to ";" and stray
// bracketing stripped. Empty result means the slice held no usable answer.
func NormalizeAnswerCandidate(answerText string, separators []string) string {
	cleaned := normalizeWS(answerText)
	cleaned = strings.Trim(cleaned, "._ ")
	cleaned = leadingJunk.ReplaceAllString(cleaned, "")
	cleaned = trailingJunk.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return ""
	}

	upper := strings.ToUpper(cleaned)
	if anyDigit.MatchString(upper) {
		upper = repairDigitGlyphs(upper)
	}
	compact := strings.ReplaceAll(upper, " ", "")
	if compact == "N/A" || compact == "NA" {
		return "N/A"
	}

	upper = repairDottedOptions(upper)
	for _, sep := range separators {
		upper = strings.ReplaceAll(upper, sep, ";")
	}
	upper = semiAroundWS.ReplaceAllString(upper, ";")
	upper = colonAroundWS.ReplaceAllString(upper, ":")
	upper = normalizeWS(upper)
	return strings.Trim(upper, " .")
}

func isWordByte(b byte) bool {
	return b == '_' || isASCIIDigit(b) ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// repairDottedOptions turns "A.B" into "A;B" when both sides are standalone
// option letters: OCR often reads a multi-select separator as a period.
func repairDottedOptions(text string) string {
	if !strings.Contains(text, ".") {
		return text
	}
	out := []byte(text)
	for i := 1; i < len(out)-1; i++ {
		if out[i] != '.' {
			continue
		}
		prev, next := out[i-1], out[i+1]
		if prev < 'A' || prev > 'D' || next < 'A' || next > 'D' {
			continue
		}
		if i >= 2 && isWordByte(out[i-2]) {
			continue
		}
		if i+2 < len(out) && isWordByte(out[i+2]) {
			continue
		}
		out[i] = ';'
	}
	return string(out)
}

// looksLikeAnswerLine guesses whether an identifier-free line carries answer
// tokens for earlier pending identifiers.
func looksLikeAnswerLine(rawText string, profile Profile) bool {
	text := strings.TrimSpace(rawText)
	if text == "" || len(text) > profile.MaxAnswerLineLength {
		return false
	}
	if strings.Contains(text, "=") {
		return false
	}
	if !answerish.MatchString(text) {
		return false
	}

	upper := strings.ToUpper(normalizeWS(text))
	compact := strings.ReplaceAll(upper, " ", "")
	if headerLike.MatchString(upper) && !containsIDTriple(upper, profile) {
		return false
	}
	if strings.Contains(upper, "QUEST") && !containsIDTriple(upper, profile) {
		return false
	}

	switch compact {
	case "A", "B", "C", "D", "N/A", "NA", "TRUE", "FALSE", "X":
		return true
	}
	if msqLoose.MatchString(compact) {
		return true
	}
	if numericOrRange.MatchString(compact) {
		return true
	}

	if multiUpper.MatchString(compact) {
		return false
	}
	if len(strings.Split(upper, " ")) > 6 {
		return false
	}
	return answerChar.MatchString(compact)
}

// splitAnswerTokens extracts candidate answer tokens from an identifier-free
// line, in reading order.
func splitAnswerTokens(rawText string, separators []string) []string {
	upper := strings.ToUpper(normalizeWS(rawText))
	if anyDigit.MatchString(upper) {
		upper = repairDigitGlyphs(upper)
	}

	var tokens []string
	for _, match := range answerToken.FindAllString(upper, -1) {
		if token := NormalizeAnswerCandidate(match, separators); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
