package dasubhandler

import (
	"testing"

	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
)

func TestParseSubmissionDates(t *testing.T) {
	start, end, issues := parseSubmissionDates("2026-09-01", "2027-02-28")
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if start == nil || end == nil {
		t.Fatal("expected both dates parsed")
	}
	if !end.After(*start) {
		t.Fatalf("expected end after start, got %v / %v", start, end)
	}
}

func TestParseSubmissionDatesOptional(t *testing.T) {
	start, end, issues := parseSubmissionDates("", "")
	if len(issues) != 0 || start != nil || end != nil {
		t.Fatalf("expected empty dates to pass, got %v %v %v", start, end, issues)
	}
}

func TestParseSubmissionDatesRejectsGarbage(t *testing.T) {
	_, _, issues := parseSubmissionDates("01/09/2026", "2027-02-28")
	if len(issues) != 1 || issues[0].Field != "start_date" {
		t.Fatalf("expected a start_date issue, got %v", issues)
	}
}

func TestParseSubmissionDatesOrdering(t *testing.T) {
	_, _, issues := parseSubmissionDates("2027-02-28", "2026-09-01")
	if len(issues) != 1 || issues[0].Field != "end_date" {
		t.Fatalf("expected an end_date ordering issue, got %v", issues)
	}
}

func TestNotificationTypeFor(t *testing.T) {
	cases := map[workflow.Action]string{
		workflow.ActionRecommend: notifications.TypeRecommendationRequested,
		workflow.ActionApprove:   notifications.TypeRecommendationApproved,
		workflow.ActionReject:    notifications.TypeRecommendationRejected,
		workflow.ActionReturn:    notifications.TypeResubmissionRequested,
		workflow.ActionProcess:   notifications.TypeSubmissionProcessed,
		workflow.ActionComplete:  notifications.TypeSubmissionCompleted,
		workflow.ActionCancel:    notifications.TypeSubmissionCancelled,
	}
	for action, want := range cases {
		if got := notificationTypeFor(action); got != want {
			t.Fatalf("%s: expected %q, got %q", action, want, got)
		}
	}
	if got := notificationTypeFor(workflow.ActionSubmit); got != "" {
		t.Fatalf("submit has no follow-up notification, got %q", got)
	}
}
