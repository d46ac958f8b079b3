package mapping

import (
	"testing"

	"github.com/examkit/answerkey/internal/core/domain"
)

const testHost = "questions.example.org"

func question(link string) domain.QuestionRecord {
	return domain.QuestionRecord{Title: "t", Question: "q", Link: link}
}

func answerRecord(uid, idStr string, volume, page int, linkHint string) domain.AnswerRecord {
	id, _ := domain.ParseIDStr(idStr)
	return domain.AnswerRecord{
		UID:      uid,
		IDStr:    idStr,
		Volume:   volume,
		ID:       id,
		Answer:   domain.TypedAnswer{Type: domain.TypeMCQ, Option: "A"},
		Source:   domain.AnswerSource{PDFRef: "volume1", Page: page},
		LinkHint: linkHint,
	}
}

func TestBuildQuestionIndexDerivesUIDs(t *testing.T) {
	index, enriched := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/tag/algorithms"),
	}, testHost)

	if enriched[0].QuestionUID != "site:101" {
		t.Fatalf("uid = %q, want site:101", enriched[0].QuestionUID)
	}
	if got := enriched[1].QuestionUID; got == "" || got[:6] != "local:" {
		t.Fatalf("uid = %q, want local: prefix for tag link", got)
	}
	if uid, ok := index.UIDForSiteID("101"); !ok || uid != "site:101" {
		t.Fatalf("UIDForSiteID(101) = %q, %v", uid, ok)
	}
	if !index.HasUID(enriched[1].QuestionUID) {
		t.Fatalf("catalog uid missing from index")
	}
}

func TestCollectCandidatesThreeChannels(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/202"),
	}, testHost)

	manifest := domain.Manifest{Items: []domain.ManifestItem{
		{
			Volume: 1,
			PageNo: 5,
			IDURLPairs: []domain.IDURLPair{
				{IDStr: "1.2.3", QuestionURL: "https://questions.example.org/101"},
				{IDStr: "9.2.4", QuestionURL: "https://questions.example.org/202"},
			},
		},
	}}
	records := []domain.AnswerRecord{
		answerRecord("v1:1.2.3", "1.2.3", 1, 5, "https://questions.example.org/101"),
		// Chapter digit misread as 5, so only the fuzzy channel can
		// match the manifest's 9.2.4 on the same page.
		answerRecord("v1:5.2.4", "5.2.4", 1, 5, ""),
	}

	set := CollectCandidates(records, manifest, index, testHost)

	direct := set["v1:1.2.3"]
	if len(direct) != 3 {
		t.Fatalf("candidates for v1:1.2.3 = %+v, want all three channels", direct)
	}
	if direct[0].Source != domain.EvidenceManifestLink ||
		direct[1].Source != domain.EvidenceParsedLinkHint ||
		direct[2].Source != domain.EvidenceManifestFuzzy {
		t.Fatalf("sources = %q, %q, %q", direct[0].Source, direct[1].Source, direct[2].Source)
	}
	for _, c := range direct {
		if c.QuestionUID != "site:101" {
			t.Fatalf("candidate target = %q, want site:101", c.QuestionUID)
		}
	}

	fuzzy := set["v1:5.2.4"]
	if len(fuzzy) != 1 || fuzzy[0].Source != domain.EvidenceManifestFuzzy {
		t.Fatalf("candidates for v1:5.2.4 = %+v, want one fuzzy", fuzzy)
	}
	if fuzzy[0].QuestionUID != "site:202" {
		t.Fatalf("fuzzy target = %q", fuzzy[0].QuestionUID)
	}
}

func TestCollectManifestFuzzySkipsAmbiguousPageMatches(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/202"),
	}, testHost)

	manifest := domain.Manifest{Items: []domain.ManifestItem{
		{
			Volume: 1,
			PageNo: 5,
			IDURLPairs: []domain.IDURLPair{
				{IDStr: "1.2.4", QuestionURL: "https://questions.example.org/101"},
				{IDStr: "9.2.4", QuestionURL: "https://questions.example.org/202"},
			},
		},
	}}
	records := []domain.AnswerRecord{answerRecord("v1:5.2.4", "5.2.4", 1, 5, "")}

	set := CollectCandidates(records, manifest, index, testHost)
	if len(set["v1:5.2.4"]) != 0 {
		t.Fatalf("candidates = %+v, want none for ambiguous subject.question", set["v1:5.2.4"])
	}
}

func TestResolveSingleTargetWins(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
	}, testHost)
	records := []domain.AnswerRecord{answerRecord("v1:1.2.3", "1.2.3", 1, 5, "")}
	set := CandidateSet{
		"v1:1.2.3": {
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:101", Source: domain.EvidenceManifestLink, QuestionIDHint: "101", PageNo: 5},
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:101", Source: domain.EvidenceParsedLinkHint, QuestionIDHint: "101", PageNo: 5},
		},
	}

	report := Resolve(records, set, nil, index, testHost)
	if len(report.Resolved) != 1 || len(report.Unresolved) != 0 {
		t.Fatalf("report = %+v", report.Stats)
	}
	got := report.Resolved[0]
	if got.QuestionUID != "site:101" || got.Source != domain.EvidenceManifestLink {
		t.Fatalf("resolved = %+v", got)
	}
	if got.IDStr != "1.2.3" || got.Volume != 1 || got.PageNo != 5 {
		t.Fatalf("resolved position = %+v", got)
	}
	if report.Stats.CoverageRatio != 1.0 {
		t.Fatalf("coverage = %v", report.Stats.CoverageRatio)
	}
}

func TestResolvePageFilterBeatsForeignPageEvidence(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/202"),
	}, testHost)
	records := []domain.AnswerRecord{answerRecord("v1:1.2.3", "1.2.3", 1, 5, "")}
	set := CandidateSet{
		"v1:1.2.3": {
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:202", Source: domain.EvidenceManifestLink, PageNo: 9},
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:101", Source: domain.EvidenceManifestLink, PageNo: 5},
		},
	}

	report := Resolve(records, set, nil, index, testHost)
	if len(report.Resolved) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Resolved[0].QuestionUID != "site:101" {
		t.Fatalf("resolved = %+v, want the same-page candidate", report.Resolved[0])
	}
}

func TestResolveConflictListsSortedTargets(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/202"),
	}, testHost)
	records := []domain.AnswerRecord{answerRecord("v1:1.2.3", "1.2.3", 1, 5, "")}
	set := CandidateSet{
		"v1:1.2.3": {
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:202", Source: domain.EvidenceManifestLink, PageNo: 5},
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:101", Source: domain.EvidenceParsedLinkHint, PageNo: 5},
		},
	}

	report := Resolve(records, set, nil, index, testHost)
	if len(report.Unresolved) != 1 {
		t.Fatalf("report = %+v", report)
	}
	got := report.Unresolved[0]
	if got.Reason != domain.ReasonMappingConflict {
		t.Fatalf("reason = %q", got.Reason)
	}
	if len(got.Candidates) != 2 || got.Candidates[0] != "site:101" || got.Candidates[1] != "site:202" {
		t.Fatalf("candidates = %v, want sorted", got.Candidates)
	}
}

func TestResolveOverrideBypassesEvidence(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
		question("https://questions.example.org/202"),
	}, testHost)
	records := []domain.AnswerRecord{answerRecord("v1:1.2.3", "1.2.3", 1, 5, "")}
	set := CandidateSet{
		"v1:1.2.3": {
			{AnswerUID: "v1:1.2.3", QuestionUID: "site:101", Source: domain.EvidenceManifestLink, PageNo: 5},
		},
	}

	report := Resolve(records, set, Overrides{"v1:1.2.3": "site:202"}, index, testHost)
	if len(report.Resolved) != 1 {
		t.Fatalf("report = %+v", report)
	}
	got := report.Resolved[0]
	if got.QuestionUID != "site:202" || got.Source != domain.EvidenceOverride || got.QuestionIDHint != "202" {
		t.Fatalf("resolved = %+v", got)
	}
}

func TestResolveOverrideTargetMissingFromCatalog(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
	}, testHost)
	records := []domain.AnswerRecord{answerRecord("v1:1.2.3", "1.2.3", 1, 5, "")}

	report := Resolve(records, CandidateSet{}, Overrides{"v1:1.2.3": "site:999"}, index, testHost)
	if len(report.Unresolved) != 1 || report.Unresolved[0].Reason != domain.ReasonOverrideTargetNotFound {
		t.Fatalf("report = %+v", report.Unresolved)
	}
}

func TestResolveRefinesUnresolvedReasons(t *testing.T) {
	index, _ := BuildQuestionIndex([]domain.QuestionRecord{
		question("https://questions.example.org/101"),
	}, testHost)
	records := []domain.AnswerRecord{
		answerRecord("v1:1.2.3", "1.2.3", 1, 5, "https://questions.example.org/999"),
		answerRecord("v1:1.2.4", "1.2.4", 1, 5, ""),
	}

	report := Resolve(records, CandidateSet{}, nil, index, testHost)
	if len(report.Unresolved) != 2 {
		t.Fatalf("unresolved = %+v", report.Unresolved)
	}
	if report.Unresolved[0].Reason != domain.ReasonQuestionIDNotInDataset {
		t.Fatalf("reason[0] = %q", report.Unresolved[0].Reason)
	}
	if report.Unresolved[0].QuestionIDHint != "999" {
		t.Fatalf("hint = %q", report.Unresolved[0].QuestionIDHint)
	}
	if report.Unresolved[1].Reason != domain.ReasonQuestionIDMissingHint {
		t.Fatalf("reason[1] = %q", report.Unresolved[1].Reason)
	}
	if report.Stats.UnresolvedInDataset != 0 {
		t.Fatalf("unresolved_in_dataset = %d, want 0", report.Stats.UnresolvedInDataset)
	}
	if report.Stats.UnresolvedReasonCounts["question_id_not_in_questions_dataset"] != 1 {
		t.Fatalf("reason counts = %v", report.Stats.UnresolvedReasonCounts)
	}
}

func TestBuildQuestionJoinReportsMultipleAnswersPerQuestion(t *testing.T) {
	records := []domain.AnswerRecord{
		answerRecord("v1:1.2.3", "1.2.3", 1, 5, ""),
		answerRecord("v1:1.2.4", "1.2.4", 1, 5, ""),
	}
	resolved := []domain.ResolvedMapping{
		{AnswerUID: "v1:1.2.3", QuestionUID: "site:101"},
		{AnswerUID: "v1:1.2.3", QuestionUID: "site:101"},
		{AnswerUID: "v1:1.2.4", QuestionUID: "site:101"},
	}

	join, conflicts := BuildQuestionJoin(records, resolved)
	if join["site:101"].AnswerUID != "v1:1.2.3" {
		t.Fatalf("join = %+v, want first answer kept", join)
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want one", conflicts)
	}
	got := conflicts[0]
	if got.ExistingAnswerUID != "v1:1.2.3" || got.ConflictingAnswerUID != "v1:1.2.4" {
		t.Fatalf("conflict = %+v", got)
	}
	if got.Reason != domain.ReasonQuestionMultipleAnswers {
		t.Fatalf("reason = %q", got.Reason)
	}
}
