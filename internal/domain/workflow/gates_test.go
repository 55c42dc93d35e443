package workflow

import "testing"

func TestCanUpdate(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusCompleted, StatusCancelled, StatusProcessed, StatusRejected} {
		if CanUpdate(s) {
			t.Fatalf("expected update disabled for %q", s)
		}
	}
	for _, s := range []Status{StatusDraft, StatusForRecommendation, StatusRecommendationRejected, StatusAwaitingRecommendationFix} {
		if !CanUpdate(s) {
			t.Fatalf("expected update enabled for %q", s)
		}
	}
}

func TestCanUpdateIsPure(t *testing.T) {
	first := CanUpdate(StatusForRecommendation)
	second := CanUpdate(StatusForRecommendation)
	if first != second {
		t.Fatal("CanUpdate must return the same answer for the same status")
	}
}

func TestCanResubmitExactStatusPerFamily(t *testing.T) {
	if !CanResubmit(FamilyDARecommendation, StatusAwaitingRecommendationFix) {
		t.Fatal("DA recommendation should resubmit from AWAITING RECOMMENDATION RESUBMISSION")
	}
	if CanResubmit(FamilyDARecommendation, StatusAwaitingResubmission) {
		t.Fatal("DA recommendation must not resubmit from the evaluation status")
	}
	if !CanResubmit(FamilyEvaluation, StatusAwaitingResubmission) {
		t.Fatal("evaluation should resubmit from AWAITING RESUBMISSION")
	}
	if CanResubmit(FamilyEvaluation, StatusAwaitingRecommendationFix) {
		t.Fatal("evaluation must not resubmit from the DA status")
	}
	if CanResubmit(FamilyMDA, StatusAwaitingResubmission) || CanResubmit(FamilyPDP, StatusAwaitingResubmission) {
		t.Fatal("families without a resubmission stage must never resubmit")
	}
}

func TestResolveActionsRequiresBothStatusAndPermission(t *testing.T) {
	actions := ResolveActions(FamilyDARecommendation, StatusAwaitingRecommendationFix, true, true)
	if !actions.CanUpdate || !actions.CanResubmit || !actions.CanCancel {
		t.Fatalf("expected full capabilities, got %+v", actions)
	}

	actions = ResolveActions(FamilyDARecommendation, StatusAwaitingRecommendationFix, false, false)
	if actions.CanUpdate || actions.CanResubmit || actions.CanCancel {
		t.Fatalf("permission denied must gate every capability, got %+v", actions)
	}

	actions = ResolveActions(FamilyDARecommendation, StatusApproved, true, true)
	if actions.CanUpdate || actions.CanResubmit || actions.CanCancel {
		t.Fatalf("approved status must gate every capability, got %+v", actions)
	}
}
