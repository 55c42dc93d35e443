package catalog

import (
	"encoding/json"
	"time"
)

type Position struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Department string  `json:"department"`
	SubUnit    string  `json:"sub_unit"`
	JobRate    float64 `json:"job_rate"`
	Allowance  float64 `json:"allowance"`
	JobLevelID string  `json:"job_level_id,omitempty"`
}

type JobLevel struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	SalaryGrade int     `json:"salary_grade"`
	MonthlyRate float64 `json:"monthly_rate"`
}

type Employee struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Email              string          `json:"email"`
	PositionID         string          `json:"position_id,omitempty"`
	EmploymentStatus   string          `json:"employment_status"`
	ProbationStartDate *time.Time      `json:"probation_start_date,omitempty"`
	ProbationEndDate   *time.Time      `json:"probation_end_date,omitempty"`
	Details            json.RawMessage `json:"details,omitempty"`
}

// KPITemplate is one line of the performance-objective template attached to
// a position. Submissions copy template lines; they never reference them.
type KPITemplate struct {
	ID                     string  `json:"id"`
	PositionID             string  `json:"position_id"`
	ObjectiveID            string  `json:"objective_id"`
	ObjectiveName          string  `json:"objective_name"`
	DistributionPercentage float64 `json:"distribution_percentage"`
	Deliverable            string  `json:"deliverable"`
	TargetPercentage       float64 `json:"target_percentage"`
}

// PositionFields is the dependent-field set derived from selecting a
// position on a form.
type PositionFields struct {
	PositionID string  `json:"position_id"`
	Title      string  `json:"position_title"`
	Department string  `json:"department"`
	SubUnit    string  `json:"sub_unit"`
	JobRate    float64 `json:"job_rate"`
	Allowance  float64 `json:"allowance"`
}

// EmployeeFields is the dependent-field set derived from selecting an
// employee on a form.
type EmployeeFields struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	PositionID    string `json:"position_id,omitempty"`
	PositionTitle string `json:"position_title,omitempty"`
	Department    string `json:"department,omitempty"`
}
