package pdp

import "testing"

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !ValidStatus(status) {
			t.Fatalf("expected %q to be a valid status", status)
		}
	}
	for _, status := range []string{"", "done", "PENDING", "in progress"} {
		if ValidStatus(status) {
			t.Fatalf("expected %q to be rejected", status)
		}
	}
}
