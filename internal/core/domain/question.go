package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// QuestionRecord is one entry of the externally maintained question catalog.
// The catalog owns these records; the core only references them.
type QuestionRecord struct {
	QuestionUID string      `json:"question_uid,omitempty"`
	Title       string      `json:"title"`
	Question    string      `json:"question"`
	Link        string      `json:"link"`
	AnswerUID   string      `json:"answer_uid,omitempty"`
	AnswerMeta  *AnswerMeta `json:"answer_meta,omitempty"`
}

// AnswerMeta is the answer payload attached to a question after merging.
type AnswerMeta struct {
	Type      AnswerType `json:"type"`
	Answer    any        `json:"answer"`
	Tolerance *Tolerance `json:"tolerance,omitempty"`
	Source    string     `json:"source,omitempty"`
}

const (
	SiteUIDPrefix  = "site:"
	LocalUIDPrefix = "local:"
)

// ExtractSiteQuestionID pulls the numeric question ID out of a catalog URL
// like https://<host>/123456. Tag and listing URLs carry no question ID.
func ExtractSiteQuestionID(url, host string) string {
	if url == "" || host == "" {
		return ""
	}
	if strings.Contains(url, "/tag/") || strings.Contains(url, "/questions/") {
		return ""
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(host) + `/(\d+)`)
	m := pattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// LocalQuestionHash builds a stable content hash for catalog records that
// carry no numeric site ID.
func LocalQuestionHash(title, questionHTML, link string) string {
	raw := fmt.Sprintf("%s||%s||%s", strings.TrimSpace(title), strings.TrimSpace(questionHTML), strings.TrimSpace(link))
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// QuestionUIDFor derives the stable question UID: the numeric site ID when
// the link carries one, otherwise a content hash.
func QuestionUIDFor(q QuestionRecord, siteHost string) string {
	if id := ExtractSiteQuestionID(q.Link, siteHost); id != "" {
		return SiteUIDPrefix + id
	}
	return LocalUIDPrefix + LocalQuestionHash(q.Title, q.Question, q.Link)
}
