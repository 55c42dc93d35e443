package dasub

import "errors"

var (
	ErrNotFound               = errors.New("submission not found")
	ErrEmployeeRequired       = errors.New("employee is required")
	ErrPositionRequired       = errors.New("target position is required")
	ErrNoObjectives           = errors.New("at least one KPI line is required")
	ErrRecommendationRequired = errors.New("exactly one final recommendation must be selected")
	ErrExtensionDateRequired  = errors.New("extension end date is required for an extension")
	ErrPerformanceMissing     = errors.New("every objective needs an actual performance score")
	ErrUnknownStatus          = errors.New("unknown submission status")
)
