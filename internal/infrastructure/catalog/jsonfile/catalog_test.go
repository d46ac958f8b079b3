package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadQuestionsParsesDataset(t *testing.T) {
	path := writeFile(t, "questions.json", `[
		{"title": "Q one", "question": "<p>body</p>", "link": "https://questions.example.org/202"},
		{"question_uid": "local:abc123", "title": "Q two", "question": "<p>other</p>", "link": ""}
	]`)

	questions, err := New(path, "").LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("LoadQuestions() error = %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Link != "https://questions.example.org/202" {
		t.Fatalf("link = %q", questions[0].Link)
	}
	if questions[1].QuestionUID != "local:abc123" {
		t.Fatalf("question_uid = %q", questions[1].QuestionUID)
	}
}

func TestLoadOverridesWrappedUIDForm(t *testing.T) {
	path := writeFile(t, "overrides.json", `{"uid_to_question_uid": {"v2:1.2.3": "site:202"}}`)

	overrides, err := New("", path).LoadOverrides(context.Background())
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}
	if overrides["v2:1.2.3"] != "site:202" {
		t.Fatalf("overrides = %v", overrides)
	}
}

func TestLoadOverridesPromotesBareNumericIDs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"wrapped id form", `{"uid_to_question_id": {"v2:1.2.3": "202", "v2:4.5.6": "local:ff00", "v2:7.8.9": "site:303"}}`},
		{"flat form", `{"v2:1.2.3": "202", "v2:4.5.6": "local:ff00", "v2:7.8.9": "site:303"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "overrides.json", tc.body)
			overrides, err := New("", path).LoadOverrides(context.Background())
			if err != nil {
				t.Fatalf("LoadOverrides() error = %v", err)
			}
			if overrides["v2:1.2.3"] != "site:202" {
				t.Fatalf("numeric target not promoted: %v", overrides)
			}
			if overrides["v2:4.5.6"] != "local:ff00" {
				t.Fatalf("local target must pass through: %v", overrides)
			}
			if overrides["v2:7.8.9"] != "site:303" {
				t.Fatalf("site target must pass through: %v", overrides)
			}
		})
	}
}

func TestLoadOverridesMissingFileYieldsEmpty(t *testing.T) {
	overrides, err := New("", filepath.Join(t.TempDir(), "absent.json")).LoadOverrides(context.Background())
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("expected empty overrides, got %v", overrides)
	}
}
