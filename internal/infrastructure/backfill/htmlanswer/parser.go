package htmlanswer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/examkit/answerkey/internal/core/token"
)

// Parser recovers accepted answers from catalog question pages. Two sources
// are tried in order: the structured answer widget, then free-form prose in
// the selected answer block.
type Parser struct {
	defaultTolerance float64
}

func NewParser(defaultTolerance float64) *Parser {
	return &Parser{defaultTolerance: defaultTolerance}
}

// Result carries the parsed answer plus which extraction method produced it,
// so review tooling can rank widget hits above prose hits.
type Result struct {
	Answer token.BackfillAnswer
	Method string
}

var (
	answerWidgetPattern  = regexp.MustCompile(`(?is)<span>\s*Answer:\s*</span>\s*<button[^>]*>(.*?)</button>`)
	selectedBlockPattern = regexp.MustCompile(`(?is)qa-a-list-item-selected.*?qa-a-item-content[^>]*>(.*?)<div class="qa-post-when-container`)
	wordSeparatorPattern = regexp.MustCompile(`(?i)\s*(?:&|\band\b)\s*`)
	tailOptionPattern    = regexp.MustCompile(`(?i)\bOption\s*\(?\s*([A-D])\s*\)?\b`)

	prosePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Correct\s*Answer\s*[:\-]?\s*([A-D](?:\s*[,;/]\s*[A-D])*)`),
		regexp.MustCompile(`(?i)Correct\s*Option\s*[:\-]?\s*([A-D](?:\s*[,;/]\s*[A-D])*)`),
		regexp.MustCompile(`(?i)(?:the\s+)?answer\s*(?:is|=|:)\s*\(?\s*([A-D])\s*\)?`),
		regexp.MustCompile(`(?i)Option\s*\(?\s*([A-D])\s*\)?\s*(?:is\s*(?:correct|right|true)|\.)`),
		regexp.MustCompile(`(?i)\b([A-D])\)\s*(?:all are valid|is correct|is the correct)`),
		regexp.MustCompile(`(?i)Correct\s*Answer\s*[:\-]?\s*([-+]?\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(?:final\s+)?answer\s*(?:is|=|:)\s*([-+]?\d+(?:\.\d+)?)`),
	}
)

// ParsePage extracts the accepted answer from a full question page.
func (p *Parser) ParsePage(pageHTML string) (Result, bool) {
	if m := answerWidgetPattern.FindStringSubmatch(pageHTML); m != nil {
		if answer, ok := p.parseToken(m[1]); ok {
			return Result{Answer: answer, Method: "answer_widget"}, true
		}
	}
	return p.parseSelectedAnswer(pageHTML)
}

func (p *Parser) parseSelectedAnswer(pageHTML string) (Result, bool) {
	m := selectedBlockPattern.FindStringSubmatch(pageHTML)
	if m == nil {
		return Result{}, false
	}
	answerText := StripTags(m[1])
	if answerText == "" {
		return Result{}, false
	}

	for _, pattern := range prosePatterns {
		hit := pattern.FindStringSubmatch(answerText)
		if hit == nil {
			continue
		}
		if answer, ok := p.parseToken(hit[1]); ok {
			return Result{Answer: answer, Method: "selected_answer_text"}, true
		}
	}

	// Last resort: an "Option (X)" mention near the end of the post.
	tail := answerText
	if len(tail) > 200 {
		tail = tail[len(tail)-200:]
	}
	if hit := tailOptionPattern.FindStringSubmatch(tail); hit != nil {
		if answer, ok := p.parseToken(hit[1]); ok {
			return Result{Answer: answer, Method: "selected_answer_tail_option"}, true
		}
	}
	return Result{}, false
}

// parseToken strips residual markup, folds prose separators into the list
// separator the loose policy understands, and applies that policy.
func (p *Parser) parseToken(raw string) (token.BackfillAnswer, bool) {
	text := StripTags(raw)
	text = wordSeparatorPattern.ReplaceAllString(text, ";")
	return token.ParseBackfill(text, p.defaultTolerance)
}

// StripTags flattens an HTML fragment to its visible text with single-space
// runs. Entities are decoded by the tokenizer.
func StripTags(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}
