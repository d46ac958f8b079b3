package token

import (
	"math"
	"testing"

	"github.com/examkit/answerkey/internal/core/domain"
)

func TestParseBackfillRangeUsesMidpointAndDerivedTolerance(t *testing.T) {
	got, ok := ParseBackfill("2.0:3.0", 0.01)
	if !ok {
		t.Fatalf("ParseBackfill() not ok")
	}
	if got.Answer.Type != domain.TypeNAT || math.Abs(got.Answer.Value-2.5) > 1e-12 {
		t.Fatalf("answer = %+v, want NAT 2.5", got.Answer)
	}
	if math.Abs(got.ToleranceAbs-0.5) > 1e-12 {
		t.Fatalf("tolerance = %v, want 0.5", got.ToleranceAbs)
	}
}

func TestParseBackfillReversedRangeIsReordered(t *testing.T) {
	got, ok := ParseBackfill("5:3", 0.01)
	if !ok {
		t.Fatalf("ParseBackfill() not ok")
	}
	if got.Answer.Value != 4 || got.ToleranceAbs != 1 {
		t.Fatalf("got value=%v tol=%v, want 4 and 1", got.Answer.Value, got.ToleranceAbs)
	}
}

func TestParseBackfillDegenerateRangeFallsBackToDefaultTolerance(t *testing.T) {
	got, ok := ParseBackfill("2.5:2.5", 0.01)
	if !ok {
		t.Fatalf("ParseBackfill() not ok")
	}
	if got.ToleranceAbs != 0.01 {
		t.Fatalf("tolerance = %v, want default 0.01", got.ToleranceAbs)
	}
}

func TestParseBackfillMSQRequiresTwoDistinctOptions(t *testing.T) {
	got, ok := ParseBackfill("A; C", 0.01)
	if !ok || got.Answer.Type != domain.TypeMSQ {
		t.Fatalf("got %+v ok=%v, want MSQ", got, ok)
	}
	if len(got.Answer.Options) != 2 || got.Answer.Options[0] != "A" || got.Answer.Options[1] != "C" {
		t.Fatalf("options = %v", got.Answer.Options)
	}

	// A repeated single option is not a multi-select and the joined token
	// is not a bare option either, so nothing matches.
	if got, ok := ParseBackfill("B,B", 0.01); ok {
		t.Fatalf("ParseBackfill(B,B) ok = true, got %+v", got)
	}
}

func TestParseBackfillMCQAndNAT(t *testing.T) {
	got, ok := ParseBackfill("(C)", 0.01)
	if !ok || got.Answer.Type != domain.TypeMCQ || got.Answer.Option != "C" {
		t.Fatalf("got %+v ok=%v, want MCQ C", got, ok)
	}

	got, ok = ParseBackfill("42", 0.01)
	if !ok || got.Answer.Type != domain.TypeNAT || got.Answer.Value != 42 || got.ToleranceAbs != 0.01 {
		t.Fatalf("got %+v ok=%v, want NAT 42 tol 0.01", got, ok)
	}
}

func TestParseBackfillRejectsProse(t *testing.T) {
	if _, ok := ParseBackfill("see discussion below", 0.01); ok {
		t.Fatalf("expected rejection for prose")
	}
}
