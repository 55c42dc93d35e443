package mda

import (
	"errors"
	"testing"
	"time"

	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/workflow"
)

func approvedSubmission() dasub.Submission {
	return dasub.Submission{
		ID:                  "s1",
		Status:              workflow.StatusApproved.String(),
		EmployeeID:          "e1",
		EmployeeName:        "Ana Reyes",
		FromPositionTitle:   "Analyst",
		FromDepartment:      "Finance",
		FromSubUnit:         "Treasury",
		FromJobRate:         30000,
		FromAllowance:       1500,
		ToPositionTitle:     "Senior Analyst",
		ToDepartment:        "Finance",
		ToSubUnit:           "Audit",
		FinalRecommendation: dasub.RecommendationForPermanent,
	}
}

func TestPrefillPermanentAppointment(t *testing.T) {
	prefill, err := PrefillFromSubmission(approvedSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefill.NatureOfAction != NaturePermanentAppointment {
		t.Fatalf("expected permanent appointment, got %q", prefill.NatureOfAction)
	}
	if prefill.ToPositionTitle != "Senior Analyst" || prefill.FromPositionTitle != "Analyst" {
		t.Fatalf("position snapshot mismatch: %+v", prefill)
	}
	if prefill.DASubmissionID != "s1" || prefill.EmployeeName != "Ana Reyes" {
		t.Fatalf("identity mismatch: %+v", prefill)
	}
}

func TestPrefillExtensionCarriesEffectiveDate(t *testing.T) {
	sub := approvedSubmission()
	end := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	sub.FinalRecommendation = dasub.RecommendationForExtension
	sub.ExtensionEndDate = &end

	prefill, err := PrefillFromSubmission(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefill.NatureOfAction != NatureExtension {
		t.Fatalf("expected extension, got %q", prefill.NatureOfAction)
	}
	if prefill.EffectiveDate == nil || !prefill.EffectiveDate.Equal(end) {
		t.Fatalf("expected effective date %v, got %v", end, prefill.EffectiveDate)
	}
}

func TestPrefillNotForPermanentReturnsToOrigin(t *testing.T) {
	sub := approvedSubmission()
	sub.FinalRecommendation = dasub.RecommendationNotForPermanent

	prefill, err := PrefillFromSubmission(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefill.NatureOfAction != NatureReturnToPosition {
		t.Fatalf("expected return to position, got %q", prefill.NatureOfAction)
	}
	if prefill.ToPositionTitle != "Analyst" || prefill.ToDepartment != "Finance" || prefill.ToSubUnit != "Treasury" {
		t.Fatalf("expected origin position as target, got %+v", prefill)
	}
}

func TestPrefillHandlesMixedCaseRecommendation(t *testing.T) {
	sub := approvedSubmission()
	sub.FinalRecommendation = "For permanent appointment"

	prefill, err := PrefillFromSubmission(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefill.NatureOfAction != NaturePermanentAppointment {
		t.Fatalf("expected permanent appointment for mixed-case verdict, got %q", prefill.NatureOfAction)
	}
}

func TestPrefillRejectsUnapprovedSubmission(t *testing.T) {
	for _, status := range []string{
		workflow.StatusForRecommendation.String(),
		workflow.StatusPendingRecommendation.String(),
		workflow.StatusCancelled.String(),
		"garbage",
	} {
		sub := approvedSubmission()
		sub.Status = status
		if _, err := PrefillFromSubmission(sub); !errors.Is(err, ErrSubmissionNotApproved) {
			t.Fatalf("status %q: expected ErrSubmissionNotApproved, got %v", status, err)
		}
	}
}
