package dasub

import (
	"errors"
	"strings"
	"testing"

	"hrflow/internal/domain/catalog"
	"hrflow/internal/domain/workflow"
)

func floatPtr(v float64) *float64 { return &v }

func TestClampScore(t *testing.T) {
	if got := ClampScore(nil); got != nil {
		t.Fatalf("nil must stay nil, got %v", *got)
	}
	if got := ClampScore(floatPtr(-5)); *got != 0 {
		t.Fatalf("expected clamp to 0, got %v", *got)
	}
	if got := ClampScore(floatPtr(150)); *got != 100 {
		t.Fatalf("expected clamp to 100, got %v", *got)
	}
	if got := ClampScore(floatPtr(87.5)); *got != 87.5 {
		t.Fatalf("in-range value must pass through, got %v", *got)
	}
}

func TestClampScoreDoesNotMutateInput(t *testing.T) {
	original := floatPtr(130)
	_ = ClampScore(original)
	if *original != 130 {
		t.Fatalf("input mutated to %v", *original)
	}
}

func TestValidateDistribution(t *testing.T) {
	lines := []ObjectiveLine{
		{ObjectiveName: "Quality", DistributionPercentage: 60},
		{ObjectiveName: "Timeliness", DistributionPercentage: 40},
	}
	if err := ValidateDistribution(lines); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines[1].DistributionPercentage = 35
	err := ValidateDistribution(lines)
	if err == nil {
		t.Fatal("expected error for 95% total")
	}
	if !strings.Contains(err.Error(), "95") {
		t.Fatalf("error must carry the computed total, got %q", err)
	}
}

func TestValidateCreate(t *testing.T) {
	valid := CreateInput{
		EmployeeID:   "e1",
		ToPositionID: "p2",
		KPIs: []ObjectiveLine{
			{ObjectiveName: "Quality", DistributionPercentage: 100},
		},
	}
	if err := ValidateCreate(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingEmployee := valid
	missingEmployee.EmployeeID = "  "
	if err := ValidateCreate(missingEmployee); !errors.Is(err, ErrEmployeeRequired) {
		t.Fatalf("expected ErrEmployeeRequired, got %v", err)
	}

	missingPosition := valid
	missingPosition.ToPositionID = ""
	if err := ValidateCreate(missingPosition); !errors.Is(err, ErrPositionRequired) {
		t.Fatalf("expected ErrPositionRequired, got %v", err)
	}

	noKPIs := valid
	noKPIs.KPIs = nil
	if err := ValidateCreate(noKPIs); !errors.Is(err, ErrNoObjectives) {
		t.Fatalf("expected ErrNoObjectives, got %v", err)
	}
}

func TestValidateRecommendation(t *testing.T) {
	scored := []ObjectiveScoreLine{
		{ID: "o1", ActualPerformance: floatPtr(90)},
		{ID: "o2", ActualPerformance: floatPtr(75), Remarks: "solid"},
	}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: RecommendationForPermanent,
		Objectives:          scored,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: RecommendationForExtension,
		Objectives:          scored,
	}); !errors.Is(err, ErrExtensionDateRequired) {
		t.Fatalf("expected ErrExtensionDateRequired, got %v", err)
	}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: RecommendationForExtension,
		ExtensionEndDate:    "2026-10-31",
		Objectives:          scored,
	}); err != nil {
		t.Fatalf("unexpected error with extension date: %v", err)
	}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: "MAYBE",
		Objectives:          scored,
	}); !errors.Is(err, ErrRecommendationRequired) {
		t.Fatalf("expected ErrRecommendationRequired, got %v", err)
	}

	unscored := append(append([]ObjectiveScoreLine{}, scored...), ObjectiveScoreLine{ID: "o3"})
	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: RecommendationForPermanent,
		Objectives:          unscored,
	}); !errors.Is(err, ErrPerformanceMissing) {
		t.Fatalf("expected ErrPerformanceMissing, got %v", err)
	}
}

func TestValidateRecommendationAcceptsMixedCase(t *testing.T) {
	scored := []ObjectiveScoreLine{{ID: "o1", ActualPerformance: floatPtr(90)}}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: "For permanent appointment",
		Objectives:          scored,
	}); err != nil {
		t.Fatalf("mixed-case verdict must validate, got %v", err)
	}

	if err := ValidateRecommendation(RecommendationInput{
		FinalRecommendation: "for  extension",
		Objectives:          scored,
	}); !errors.Is(err, ErrExtensionDateRequired) {
		t.Fatalf("expected ErrExtensionDateRequired for mixed-case extension, got %v", err)
	}
}

func TestNormalizeRecommendation(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"For permanent appointment", RecommendationForPermanent},
		{"  not for permanent appointment ", RecommendationNotForPermanent},
		{"FOR  EXTENSION", RecommendationForExtension},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeRecommendation(tc.raw); got != tc.want {
			t.Fatalf("NormalizeRecommendation(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestInRecommendationStage(t *testing.T) {
	for _, s := range []workflow.Status{
		workflow.StatusForRecommendation,
		workflow.StatusPendingRecommendation,
		workflow.StatusRecommendationRejected,
		workflow.StatusAwaitingRecommendationFix,
	} {
		if !InRecommendationStage(s) {
			t.Fatalf("expected %q in recommendation stage", s)
		}
	}
	for _, s := range []workflow.Status{workflow.StatusDraft, workflow.StatusApproved, workflow.StatusCompleted} {
		if InRecommendationStage(s) {
			t.Fatalf("expected %q outside recommendation stage", s)
		}
	}
}

func TestObjectivesFromTemplate(t *testing.T) {
	templates := []catalog.KPITemplate{
		{ID: "k1", ObjectiveID: "obj-1", ObjectiveName: "Quality", DistributionPercentage: 70, Deliverable: "Reports", TargetPercentage: 95},
		{ID: "k2", ObjectiveID: "obj-2", ObjectiveName: "Timeliness", DistributionPercentage: 30, Deliverable: "Deadlines", TargetPercentage: 100},
	}

	lines := ObjectivesFromTemplate(templates)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].SourceKPIID != "k1" || lines[0].ObjectiveName != "Quality" || lines[0].DistributionPercentage != 70 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[0].ActualPerformance != nil || lines[0].Remarks != "" {
		t.Fatalf("template copy must start unscored, got %+v", lines[0])
	}

	if got := ObjectivesFromTemplate(nil); len(got) != 0 {
		t.Fatalf("empty template must yield empty set, got %d lines", len(got))
	}
}
