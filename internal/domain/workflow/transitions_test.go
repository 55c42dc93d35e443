package workflow

import (
	"errors"
	"testing"
)

func TestFullPipeline(t *testing.T) {
	steps := []struct {
		action Action
		want   Status
	}{
		{ActionSubmit, StatusForRecommendation},
		{ActionRecommend, StatusPendingRecommendation},
		{ActionApprove, StatusApproved},
		{ActionProcess, StatusProcessed},
		{ActionComplete, StatusCompleted},
	}

	status := StatusDraft
	for _, step := range steps {
		next, err := Next(status, step.action)
		if err != nil {
			t.Fatalf("%q on %q: %v", step.action, status, err)
		}
		if next != step.want {
			t.Fatalf("%q on %q = %q, want %q", step.action, status, next, step.want)
		}
		status = next
	}
}

func TestRejectAndResubmitLoop(t *testing.T) {
	status, err := Next(StatusPendingRecommendation, ActionReject)
	if err != nil || status != StatusRecommendationRejected {
		t.Fatalf("reject: %q, %v", status, err)
	}
	status, err = Next(status, ActionReturn)
	if err != nil || status != StatusAwaitingRecommendationFix {
		t.Fatalf("return: %q, %v", status, err)
	}
	status, err = Next(status, ActionResubmit)
	if err != nil || status != StatusPendingRecommendation {
		t.Fatalf("resubmit: %q, %v", status, err)
	}
}

func TestEvaluationFamilyResubmissionLeg(t *testing.T) {
	status, err := NextFor(FamilyEvaluation, StatusPendingRecommendation, ActionReturn)
	if err != nil || status != StatusAwaitingResubmission {
		t.Fatalf("evaluation return: %q, %v", status, err)
	}
	status, err = NextFor(FamilyEvaluation, status, ActionResubmit)
	if err != nil || status != StatusPendingRecommendation {
		t.Fatalf("evaluation resubmit: %q, %v", status, err)
	}

	// The DA family must not pick up the evaluation leg.
	if _, err := NextFor(FamilyDARecommendation, StatusAwaitingResubmission, ActionResubmit); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for DA family, got %v", err)
	}
}

func TestEvaluationFamilyCompleteFromApproved(t *testing.T) {
	status, err := NextFor(FamilyEvaluation, StatusApproved, ActionComplete)
	if err != nil || status != StatusCompleted {
		t.Fatalf("evaluation complete: %q, %v", status, err)
	}

	// DA submissions pass through processing first.
	if _, err := NextFor(FamilyDARecommendation, StatusApproved, ActionComplete); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for DA family, got %v", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	invalid := []struct {
		from   Status
		action Action
	}{
		{StatusCompleted, ActionApprove},
		{StatusApproved, ActionCancel},
		{StatusDraft, ActionApprove},
		{StatusCancelled, ActionResubmit},
		{StatusAwaitingResubmission, ActionApprove},
	}
	for _, tc := range invalid {
		if _, err := Next(tc.from, tc.action); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected invalid transition for %q on %q, got %v", tc.action, tc.from, err)
		}
	}
}

func TestCancelFromEarlyStatuses(t *testing.T) {
	for _, from := range []Status{StatusDraft, StatusForRecommendation, StatusAwaitingRecommendationFix} {
		next, err := Next(from, ActionCancel)
		if err != nil {
			t.Fatalf("cancel from %q: %v", from, err)
		}
		if next != StatusCancelled {
			t.Fatalf("cancel from %q = %q", from, next)
		}
	}
}
