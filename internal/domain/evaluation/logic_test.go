package evaluation

import (
	"errors"
	"strings"
	"testing"

	"hrflow/internal/domain/catalog"
)

func floatPtr(v float64) *float64 { return &v }

func TestClampScore(t *testing.T) {
	if got := clampScore(nil); got != nil {
		t.Fatalf("nil must stay nil, got %v", *got)
	}
	if got := clampScore(floatPtr(-1)); *got != 0 {
		t.Fatalf("expected 0, got %v", *got)
	}
	if got := clampScore(floatPtr(101)); *got != 100 {
		t.Fatalf("expected 100, got %v", *got)
	}
	if got := clampScore(floatPtr(55)); *got != 55 {
		t.Fatalf("expected 55, got %v", *got)
	}
}

func TestValidateCreateRequiresProbationStart(t *testing.T) {
	input := CreateInput{
		EmployeeID:   "e1",
		RatingPeriod: "Q1 2026",
		Objectives: []ObjectiveLine{
			{ObjectiveName: "Quality", DistributionPercentage: 100},
		},
	}
	if err := ValidateCreate(input); !errors.Is(err, ErrProbationStartMissing) {
		t.Fatalf("expected ErrProbationStartMissing, got %v", err)
	}

	input.ProbationStartDate = "2026-01-15"
	if err := ValidateCreate(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCreateDistribution(t *testing.T) {
	input := CreateInput{
		EmployeeID:         "e1",
		ProbationStartDate: "2026-01-15",
		Objectives: []ObjectiveLine{
			{ObjectiveName: "Quality", DistributionPercentage: 50},
			{ObjectiveName: "Conduct", DistributionPercentage: 30},
		},
	}
	err := ValidateCreate(input)
	if err == nil {
		t.Fatal("expected error for 80% total")
	}
	if !strings.Contains(err.Error(), "80") {
		t.Fatalf("error must carry the computed total, got %q", err)
	}
}

func TestValidateCreateRequiresObjectives(t *testing.T) {
	input := CreateInput{EmployeeID: "e1", ProbationStartDate: "2026-01-15"}
	if err := ValidateCreate(input); !errors.Is(err, ErrNoObjectives) {
		t.Fatalf("expected ErrNoObjectives, got %v", err)
	}
}

func TestObjectivesFromTemplate(t *testing.T) {
	lines := ObjectivesFromTemplate([]catalog.KPITemplate{
		{ID: "k1", ObjectiveName: "Quality", DistributionPercentage: 100, Deliverable: "Reports", TargetPercentage: 90},
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].SourceKPIID != "k1" || lines[0].ActualPerformance != nil {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}
