package mda

import (
	"time"

	"hrflow/internal/domain/workflow"
)

// Advice is a Movement/Designation Advice: the document that finalizes a
// position change, usually cut from an approved DA submission.
type Advice struct {
	ID                string           `json:"id"`
	ReferenceNumber   string           `json:"reference_number"`
	Status            string           `json:"status"`
	DASubmissionID    string           `json:"da_submission_id,omitempty"`
	EmployeeID        string           `json:"employee_id"`
	EmployeeName      string           `json:"employee_name"`
	FromPositionTitle string           `json:"from_position_title,omitempty"`
	FromDepartment    string           `json:"from_department,omitempty"`
	FromSubUnit       string           `json:"from_sub_unit,omitempty"`
	FromJobRate       float64          `json:"from_job_rate,omitempty"`
	FromAllowance     float64          `json:"from_allowance,omitempty"`
	ToPositionTitle   string           `json:"to_position_title"`
	ToDepartment      string           `json:"to_department,omitempty"`
	ToSubUnit         string           `json:"to_sub_unit,omitempty"`
	NatureOfAction    string           `json:"nature_of_action"`
	EffectiveDate     *time.Time       `json:"effective_date,omitempty"`
	Actions           workflow.Actions `json:"actions"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type CreateInput struct {
	DASubmissionID    string `json:"da_submission_id,omitempty"`
	EmployeeID        string `json:"employee_id"`
	FromPositionTitle string `json:"from_position_title,omitempty"`
	FromDepartment    string `json:"from_department,omitempty"`
	FromSubUnit       string `json:"from_sub_unit,omitempty"`
	FromJobRate       float64 `json:"from_job_rate,omitempty"`
	FromAllowance     float64 `json:"from_allowance,omitempty"`
	ToPositionTitle   string `json:"to_position_title"`
	ToDepartment      string `json:"to_department,omitempty"`
	ToSubUnit         string `json:"to_sub_unit,omitempty"`
	NatureOfAction    string `json:"nature_of_action"`
	EffectiveDate     string `json:"effective_date,omitempty"`
}

type UpdateInput struct {
	NatureOfAction string `json:"nature_of_action,omitempty"`
	EffectiveDate  string `json:"effective_date,omitempty"`
}

// Prefill is the form seed built from an approved DA submission.
type Prefill struct {
	DASubmissionID    string     `json:"da_submission_id"`
	EmployeeID        string     `json:"employee_id"`
	EmployeeName      string     `json:"employee_name"`
	FromPositionTitle string     `json:"from_position_title,omitempty"`
	FromDepartment    string     `json:"from_department,omitempty"`
	FromSubUnit       string     `json:"from_sub_unit,omitempty"`
	FromJobRate       float64    `json:"from_job_rate,omitempty"`
	FromAllowance     float64    `json:"from_allowance,omitempty"`
	ToPositionTitle   string     `json:"to_position_title"`
	ToDepartment      string     `json:"to_department,omitempty"`
	ToSubUnit         string     `json:"to_sub_unit,omitempty"`
	NatureOfAction    string     `json:"nature_of_action"`
	EffectiveDate     *time.Time `json:"effective_date,omitempty"`
}

type ListFilter struct {
	Status    string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

type ListResult struct {
	Advices []Advice
	Total   int
}
