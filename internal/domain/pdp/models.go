package pdp

import "time"

// Task statuses. PDP tasks follow a small lifecycle of their own rather
// than the submission pipeline.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task is a performance-development-plan item tracked against a DA
// submission.
type Task struct {
	ID             string     `json:"id"`
	DASubmissionID string     `json:"da_submission_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CreateInput struct {
	DASubmissionID string `json:"da_submission_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
}

type UpdateInput struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Status      string `json:"status,omitempty"`
}
