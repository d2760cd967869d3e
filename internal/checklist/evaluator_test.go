package checklist

import (
	"errors"
	"reflect"
	"testing"

	"ListingFlow/internal/domain"
)

func twoByTwo() domain.ChecklistDefinition {
	return domain.ChecklistDefinition{
		Version: "test",
		Categories: []domain.ChecklistCategory{
			{Name: "Content", Items: []domain.ChecklistItem{
				{ID: "title", Required: true},
				{ID: "pricing", Required: true},
			}},
			{Name: "Media", Items: []domain.ChecklistItem{
				{ID: "cover", Required: true},
				{ID: "gallery", Required: false},
			}},
		},
	}
}

func pass() domain.ChecklistMark { return domain.ChecklistMark{Verdict: domain.VerdictPass} }
func fail() domain.ChecklistMark { return domain.ChecklistMark{Verdict: domain.VerdictFail} }

func TestScenarioOptionalFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	result := domain.ChecklistResult{
		"title":   pass(),
		"pricing": pass(),
		"cover":   pass(),
		"gallery": fail(),
	}

	if got := Score(result, def); got != 75 {
		t.Fatalf("expected score 75, got %d", got)
	}
	if !CanApprove(result, def) {
		t.Fatalf("expected approval to be allowed")
	}

	result["pricing"] = fail()
	if CanApprove(result, def) {
		t.Fatalf("required failure must block approval")
	}
	if got := Score(result, def); got != 50 {
		t.Fatalf("expected score 50 after regression, got %d", got)
	}
	if got := FailingRequired(result, def); !reflect.DeepEqual(got, []string{"pricing"}) {
		t.Fatalf("unexpected failing list %v", got)
	}
}

func TestScoreIgnoresUnsetItems(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	if got := Score(nil, def); got != 0 {
		t.Fatalf("empty result should score 0, got %d", got)
	}

	result := domain.ChecklistResult{
		"title":   pass(),
		"gallery": {Verdict: domain.VerdictNA},
		"unknown": pass(),
	}
	// one pass out of two evaluated definition items
	if got := Score(result, def); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}

	result = domain.ChecklistResult{"title": pass(), "pricing": pass(), "cover": fail()}
	if got := Score(result, def); got != 67 {
		t.Fatalf("expected rounded 67, got %d", got)
	}
}

func TestMissingRequiredItemBlocksApproval(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	result := domain.ChecklistResult{"title": pass(), "cover": pass()}

	eval := Evaluate(result, def)
	if eval.CanApprove {
		t.Fatalf("unset required item must block approval")
	}
	if eval.Total != 4 || eval.Evaluated != 2 || eval.Passed != 2 || eval.Score != 100 {
		t.Fatalf("unexpected evaluation %+v", eval)
	}
	if msg := GuardMessage(eval.FailingRequired); msg != "1 required checklist item still failing: pricing" {
		t.Fatalf("unexpected guard message %q", msg)
	}
}

func TestOptionalItemsNeverBlock(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	for _, verdict := range []domain.Verdict{domain.VerdictUnset, domain.VerdictFail, domain.VerdictNA} {
		result := domain.ChecklistResult{"title": pass(), "pricing": pass(), "cover": pass()}
		if verdict != domain.VerdictUnset {
			result["gallery"] = domain.ChecklistMark{Verdict: verdict}
		}
		if !CanApprove(result, def) {
			t.Fatalf("optional verdict %q blocked approval", verdict)
		}
	}
}

func TestNormalizeDefaultsToNA(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	out := Normalize(domain.ChecklistResult{"title": {Verdict: domain.VerdictFail, Note: "typo"}, "stray": pass()}, def)

	if len(out) != 4 {
		t.Fatalf("expected every definition item, got %d", len(out))
	}
	if out["title"].Note != "typo" || out["title"].Verdict != domain.VerdictFail {
		t.Fatalf("existing mark lost: %+v", out["title"])
	}
	if out["gallery"].Verdict != domain.VerdictNA {
		t.Fatalf("untouched item should default to na, got %q", out["gallery"].Verdict)
	}
	if _, ok := out["stray"]; ok {
		t.Fatalf("items outside the definition must be dropped")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	if _, err := Validate(domain.ChecklistResult{"title": pass()}, def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Validate(domain.ChecklistResult{"nope": pass()}, def); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := Validate(domain.ChecklistResult{"title": {Verdict: "maybe"}}, def); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestValidateCanonicalizesVerdicts(t *testing.T) {
	t.Parallel()

	def := twoByTwo()
	in := domain.ChecklistResult{
		"title":   {Verdict: " PASS ", Note: "ok"},
		"pricing": {Verdict: "Fail"},
	}
	out, err := Validate(in, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["title"].Verdict != domain.VerdictPass || out["title"].Note != "ok" {
		t.Fatalf("title should be canonical pass, got %+v", out["title"])
	}
	if out["pricing"].Verdict != domain.VerdictFail {
		t.Fatalf("pricing should be canonical fail, got %q", out["pricing"].Verdict)
	}
	if in["title"].Verdict != " PASS " {
		t.Fatalf("input must not be mutated")
	}
}
