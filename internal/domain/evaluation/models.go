package evaluation

import (
	"time"

	"hrflow/internal/domain/workflow"
)

type Evaluation struct {
	ID                 string           `json:"id"`
	ReferenceNumber    string           `json:"reference_number"`
	Status             string           `json:"status"`
	EmployeeID         string           `json:"employee_id"`
	EmployeeName       string           `json:"employee_name"`
	PositionID         string           `json:"position_id,omitempty"`
	PositionTitle      string           `json:"position_title,omitempty"`
	Department         string           `json:"department,omitempty"`
	RatingPeriod       string           `json:"rating_period,omitempty"`
	ProbationStartDate *time.Time       `json:"probation_start_date"`
	ProbationEndDate   *time.Time       `json:"probation_end_date,omitempty"`
	OverallRemarks     string           `json:"overall_remarks,omitempty"`
	Objectives         []Objective      `json:"objectives"`
	Actions            workflow.Actions `json:"actions"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Objective is one rated KPI line on an evaluation.
type Objective struct {
	ID                     string   `json:"id"`
	SourceKPIID            string   `json:"source_kpi_id,omitempty"`
	ObjectiveName          string   `json:"objective_name"`
	DistributionPercentage float64  `json:"distribution_percentage"`
	Deliverable            string   `json:"deliverable"`
	TargetPercentage       float64  `json:"target_percentage"`
	ActualPerformance      *float64 `json:"actual_performance"`
	Remarks                string   `json:"remarks"`
}

type CreateInput struct {
	EmployeeID         string          `json:"employee_id"`
	RatingPeriod       string          `json:"rating_period"`
	ProbationStartDate string          `json:"probation_start_date"`
	ProbationEndDate   string          `json:"probation_end_date"`
	Objectives         []ObjectiveLine `json:"objectives"`
}

type ObjectiveLine struct {
	SourceKPIID            string   `json:"source_kpi_id,omitempty"`
	ObjectiveName          string   `json:"objective_name"`
	DistributionPercentage float64  `json:"distribution_percentage"`
	Deliverable            string   `json:"deliverable"`
	TargetPercentage       float64  `json:"target_percentage"`
	ActualPerformance      *float64 `json:"actual_performance,omitempty"`
	Remarks                string   `json:"remarks,omitempty"`
}

// UpdateInput is the shape decoded from the multipart _method=PATCH wire
// form: overall remarks plus per-line score updates.
type UpdateInput struct {
	RatingPeriod   string            `json:"rating_period,omitempty"`
	OverallRemarks string            `json:"overall_remarks,omitempty"`
	Objectives     []ObjectiveUpdate `json:"objectives"`
}

type ObjectiveUpdate struct {
	ID                string   `json:"id"`
	ActualPerformance *float64 `json:"actual_performance"`
	Remarks           string   `json:"remarks"`
}

type ListFilter struct {
	Status    string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	ViewMode  string
}

type ListResult struct {
	Evaluations []Evaluation
	Total       int
}
