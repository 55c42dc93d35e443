package evaluation

import "errors"

var (
	ErrNotFound              = errors.New("evaluation not found")
	ErrEmployeeRequired      = errors.New("employee is required")
	ErrProbationStartMissing = errors.New("probation start date is required")
	ErrNoObjectives          = errors.New("at least one objective is required")
	ErrUnknownStatus         = errors.New("unknown evaluation status")
)
