package pdftext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/examkit/answerkey/internal/core/domain"
)

var idLinePattern = regexp.MustCompile(`^\s*(\d+\.\d+\.\d+)\s*$`)

// Extractor builds manifest items from an answer-key PDF. Each selected page
// yields its printed identifier lines and the question URLs behind the link
// annotations, paired positionally.
type Extractor struct {
	siteHost string
}

func NewExtractor(siteHost string) *Extractor {
	return &Extractor{siteHost: siteHost}
}

func (e *Extractor) ExtractVolume(path string, volume int, pages []int) ([]domain.ManifestItem, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var items []domain.ManifestItem
	for _, pageNo := range pages {
		if pageNo < 1 || pageNo > reader.NumPage() {
			return nil, fmt.Errorf("page %d out of range for %s (1..%d)", pageNo, path, reader.NumPage())
		}
		page := reader.Page(pageNo)

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text for page %d: %w", pageNo, err)
		}
		idLines := extractIDLines(text)
		urls := e.extractQuestionURLs(page)
		pairs, countsMatch := buildIDURLPairs(idLines, urls)

		items = append(items, domain.ManifestItem{
			Volume:      volume,
			PageNo:      pageNo,
			PDFRef:      fmt.Sprintf("volume%d", volume),
			IDURLPairs:  pairs,
			CountsMatch: countsMatch,
		})
	}
	return items, nil
}

func extractIDLines(pageText string) []string {
	var ids []string
	for _, line := range strings.Split(pageText, "\n") {
		if m := idLinePattern.FindStringSubmatch(line); m != nil {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// extractQuestionURLs walks the page's link annotations in document order,
// keeping the first URL per numeric question ID.
func (e *Extractor) extractQuestionURLs(page pdf.Page) []string {
	annots := page.V.Key("Annots")
	if annots.Kind() != pdf.Array {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)
	for i := 0; i < annots.Len(); i++ {
		annot := annots.Index(i)
		if annot.Key("Subtype").Name() != "Link" {
			continue
		}
		uri := strings.TrimSpace(annot.Key("A").Key("URI").Text())
		if uri == "" {
			continue
		}
		questionID := domain.ExtractSiteQuestionID(uri, e.siteHost)
		if questionID == "" || seen[questionID] {
			continue
		}
		seen[questionID] = true
		urls = append(urls, canonicalQuestionURL(e.siteHost, questionID))
	}
	return urls
}

func canonicalQuestionURL(host, questionID string) string {
	return "https://" + host + "/" + questionID
}

// buildIDURLPairs zips identifier lines with question URLs by position. When
// the counts differ the shorter side bounds the pairing and the page is
// flagged for review.
func buildIDURLPairs(idLines, urls []string) ([]domain.IDURLPair, bool) {
	if len(idLines) == 0 || len(urls) == 0 {
		return nil, false
	}

	mapped := len(idLines)
	if len(urls) < mapped {
		mapped = len(urls)
	}
	pairs := make([]domain.IDURLPair, 0, mapped)
	for i := 0; i < mapped; i++ {
		pairs = append(pairs, domain.IDURLPair{IDStr: idLines[i], QuestionURL: urls[i]})
	}
	return pairs, len(idLines) == len(urls)
}
