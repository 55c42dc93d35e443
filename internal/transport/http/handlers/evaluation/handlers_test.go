package evaluationhandler

import (
	"testing"
)

func TestDecodeUpdateForm(t *testing.T) {
	input, issues := decodeUpdateForm(map[string][]string{
		"rating_period":                     {"1st to 3rd month"},
		"overall_remarks":                   {"steady progress"},
		"objectives[0][id]":                 {"obj-1"},
		"objectives[0][actual_performance]": {"87.5"},
		"objectives[0][remarks]":            {"on track"},
		"objectives[1][id]":                 {"obj-2"},
		"objectives[1][remarks]":            {"not yet rated"},
	})
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if input.RatingPeriod != "1st to 3rd month" || input.OverallRemarks != "steady progress" {
		t.Fatalf("scalar fields not mapped: %+v", input)
	}
	if len(input.Objectives) != 2 {
		t.Fatalf("expected 2 objective rows, got %d", len(input.Objectives))
	}
	first := input.Objectives[0]
	if first.ID != "obj-1" || first.Remarks != "on track" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.ActualPerformance == nil || *first.ActualPerformance != 87.5 {
		t.Fatalf("expected score 87.5, got %v", first.ActualPerformance)
	}
	if input.Objectives[1].ActualPerformance != nil {
		t.Fatal("unrated row must keep a nil score")
	}
}

func TestDecodeUpdateFormRejectsRowWithoutID(t *testing.T) {
	input, issues := decodeUpdateForm(map[string][]string{
		"objectives[0][actual_performance]": {"50"},
	})
	if len(issues) != 1 || issues[0].Field != "objectives[0][id]" {
		t.Fatalf("expected an id issue, got %v", issues)
	}
	if len(input.Objectives) != 0 {
		t.Fatalf("invalid row must be dropped, got %v", input.Objectives)
	}
}

func TestDecodeUpdateFormRejectsNonNumericScore(t *testing.T) {
	_, issues := decodeUpdateForm(map[string][]string{
		"objectives[0][id]":                 {"obj-1"},
		"objectives[0][actual_performance]": {"eighty"},
	})
	if len(issues) != 1 || issues[0].Reason != "must be numeric" {
		t.Fatalf("expected a numeric issue, got %v", issues)
	}
}
