package dasub

import (
	"time"

	"hrflow/internal/domain/workflow"
)

type Submission struct {
	ID                  string           `json:"id"`
	ReferenceNumber     string           `json:"reference_number"`
	Status              string           `json:"status"`
	EmployeeID          string           `json:"employee_id"`
	EmployeeName        string           `json:"employee_name"`
	FromPositionID      string           `json:"from_position_id,omitempty"`
	FromPositionTitle   string           `json:"from_position_title,omitempty"`
	FromDepartment      string           `json:"from_department,omitempty"`
	FromSubUnit         string           `json:"from_sub_unit,omitempty"`
	FromJobRate         float64          `json:"from_job_rate,omitempty"`
	FromAllowance       float64          `json:"from_allowance,omitempty"`
	ToPositionID        string           `json:"to_position_id"`
	ToPositionTitle     string           `json:"to_position_title,omitempty"`
	ToDepartment        string           `json:"to_department,omitempty"`
	ToSubUnit           string           `json:"to_sub_unit,omitempty"`
	StartDate           *time.Time       `json:"start_date,omitempty"`
	EndDate             *time.Time       `json:"end_date,omitempty"`
	FinalRecommendation string           `json:"final_recommendation,omitempty"`
	ExtensionEndDate    *time.Time       `json:"extension_end_date,omitempty"`
	Objectives          []Objective      `json:"objectives"`
	Actions             workflow.Actions `json:"actions"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Objective is one KPI line on a submission. ActualPerformance is a pointer
// so "not yet rated" survives the round trip as null instead of zero.
type Objective struct {
	ID                     string   `json:"id"`
	SourceKPIID            string   `json:"source_kpi_id,omitempty"`
	ObjectiveID            string   `json:"objective_id,omitempty"`
	ObjectiveName          string   `json:"objective_name"`
	DistributionPercentage float64  `json:"distribution_percentage"`
	Deliverable            string   `json:"deliverable"`
	TargetPercentage       float64  `json:"target_percentage"`
	ActualPerformance      *float64 `json:"actual_performance"`
	Remarks                string   `json:"remarks"`
}

// CreateInput is the full submission shape accepted on the fresh create
// path. When KPIs is empty the position's template is copied in.
type CreateInput struct {
	FormID         string          `json:"form_id"`
	EmployeeID     string          `json:"employee_id"`
	FromPositionID string          `json:"from_position_id"`
	ToPositionID   string          `json:"to_position_id"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	KPIs           []ObjectiveLine `json:"kpis"`
}

type ObjectiveLine struct {
	SourceKPIID            string   `json:"source_kpi_id,omitempty"`
	ObjectiveID            string   `json:"objective_id,omitempty"`
	ObjectiveName          string   `json:"objective_name"`
	DistributionPercentage float64  `json:"distribution_percentage"`
	Deliverable            string   `json:"deliverable"`
	TargetPercentage       float64  `json:"target_percentage"`
	ActualPerformance      *float64 `json:"actual_performance,omitempty"`
	Remarks                string   `json:"remarks,omitempty"`
}

// RecommendationInput is the reduced payload accepted once a submission has
// entered the recommendation stages.
type RecommendationInput struct {
	FinalRecommendation string               `json:"final_recommendation"`
	ExtensionEndDate    string               `json:"extension_end_date,omitempty"`
	Objectives          []ObjectiveScoreLine `json:"objectives"`
}

type ObjectiveScoreLine struct {
	ID                string   `json:"id"`
	ActualPerformance *float64 `json:"actual_performance"`
	Remarks           string   `json:"remarks"`
}

type ListFilter struct {
	Status         string
	ApprovalStatus string
	Search         string
	StartDate      *time.Time
	EndDate        *time.Time
	ViewMode       string
	Stage          string
}

type ListResult struct {
	Submissions []Submission
	Total       int
}
