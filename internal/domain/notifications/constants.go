package notifications

const (
	TypeSubmissionCreated       = "submission_created"
	TypeRecommendationRequested = "recommendation_requested"
	TypeRecommendationApproved  = "recommendation_approved"
	TypeRecommendationRejected  = "recommendation_rejected"
	TypeResubmissionRequested   = "resubmission_requested"
	TypeSubmissionProcessed     = "submission_processed"
	TypeSubmissionCompleted     = "submission_completed"
	TypeSubmissionCancelled     = "submission_cancelled"
	TypeEvaluationDue           = "evaluation_due"
	TypeAdviceIssued            = "advice_issued"
	TypePDPTaskAssigned         = "pdp_task_assigned"
)

var titles = map[string]string{
	TypeSubmissionCreated:       "Submission created",
	TypeRecommendationRequested: "Recommendation requested",
	TypeRecommendationApproved:  "Recommendation approved",
	TypeRecommendationRejected:  "Recommendation rejected",
	TypeResubmissionRequested:   "Resubmission requested",
	TypeSubmissionProcessed:     "Submission processed",
	TypeSubmissionCompleted:     "Submission completed",
	TypeSubmissionCancelled:     "Submission cancelled",
	TypeEvaluationDue:           "Probationary evaluation due",
	TypeAdviceIssued:            "Movement advice issued",
	TypePDPTaskAssigned:         "Development plan task assigned",
}

// Title returns the subject line used for a notification type.
func Title(ntype string) string {
	if title, ok := titles[ntype]; ok {
		return title
	}
	return "Notification"
}
