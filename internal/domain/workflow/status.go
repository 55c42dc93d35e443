package workflow

import "strings"

// Status is a canonical workflow state. Raw status strings from clients or
// older records vary in case and separator; Normalize is the only way in.
type Status string

const (
	StatusDraft                      Status = "DRAFT"
	StatusForRecommendation          Status = "FOR RECOMMENDATION"
	StatusPendingRecommendation      Status = "PENDING RECOMMENDATION APPROVAL"
	StatusRecommendationRejected     Status = "RECOMMENDATION REJECTED"
	StatusAwaitingRecommendationFix  Status = "AWAITING RECOMMENDATION RESUBMISSION"
	StatusAwaitingResubmission       Status = "AWAITING RESUBMISSION"
	StatusForProcessing              Status = "FOR PROCESSING"
	StatusProcessed                  Status = "PROCESSED"
	StatusApproved                   Status = "APPROVED"
	StatusCompleted                  Status = "COMPLETED"
	StatusCancelled                  Status = "CANCELLED"
	StatusRejected                   Status = "REJECTED"
)

var known = map[Status]struct{}{
	StatusDraft:                     {},
	StatusForRecommendation:         {},
	StatusPendingRecommendation:     {},
	StatusRecommendationRejected:    {},
	StatusAwaitingRecommendationFix: {},
	StatusAwaitingResubmission:      {},
	StatusForProcessing:             {},
	StatusProcessed:                 {},
	StatusApproved:                  {},
	StatusCompleted:                 {},
	StatusCancelled:                 {},
	StatusRejected:                  {},
}

// Normalize maps a raw status string to its canonical form: upper-cased,
// hyphens and underscores treated as spaces, runs of whitespace collapsed.
// Unknown statuses return ok=false rather than a guessed value.
func Normalize(raw string) (Status, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "-", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	status := Status(cleaned)
	_, ok := known[status]
	return status, ok
}

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further workflow action can move s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}
