package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/mapping"
)

// Catalog reads the question dataset and the manual override file from
// JSON files maintained outside this service.
type Catalog struct {
	questionsPath string
	overridesPath string
}

func New(questionsPath, overridesPath string) *Catalog {
	return &Catalog{questionsPath: questionsPath, overridesPath: overridesPath}
}

func (c *Catalog) LoadQuestions(_ context.Context) ([]domain.QuestionRecord, error) {
	if c.questionsPath == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.questionsPath)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	var questions []domain.QuestionRecord
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode questions file: %w", err)
	}
	return questions, nil
}

// LoadOverrides accepts three historical file shapes. The oldest files pin
// answer UIDs to bare numeric site question IDs; those are promoted to the
// prefixed question UID form.
func (c *Catalog) LoadOverrides(_ context.Context) (mapping.Overrides, error) {
	if c.overridesPath == "" {
		return mapping.Overrides{}, nil
	}
	raw, err := os.ReadFile(c.overridesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return mapping.Overrides{}, nil
		}
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var wrapped struct {
		UIDToQuestionUID map[string]string `json:"uid_to_question_uid"`
		UIDToQuestionID  map[string]string `json:"uid_to_question_id"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.UIDToQuestionUID != nil {
			return mapping.Overrides(wrapped.UIDToQuestionUID), nil
		}
		if wrapped.UIDToQuestionID != nil {
			return promoteOverrides(wrapped.UIDToQuestionID), nil
		}
	}

	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode overrides file: %w", err)
	}
	return promoteOverrides(flat), nil
}

func promoteOverrides(in map[string]string) mapping.Overrides {
	out := make(mapping.Overrides, len(in))
	for uid, target := range in {
		out[uid] = promoteQuestionID(target)
	}
	return out
}

func promoteQuestionID(target string) string {
	if strings.HasPrefix(target, domain.SiteUIDPrefix) || strings.HasPrefix(target, domain.LocalUIDPrefix) {
		return target
	}
	if isDigits(target) {
		return domain.SiteUIDPrefix + target
	}
	return target
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
