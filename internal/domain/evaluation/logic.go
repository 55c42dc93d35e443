package evaluation

import (
	"fmt"
	"strings"

	"hrflow/internal/domain/catalog"
)

// clampScore bounds a performance percentage to [0,100], leaving nil
// (unrated) untouched.
func clampScore(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return &v
}

// ValidateCreate checks the create payload. The probation start date is the
// anchor of the whole evaluation and is required up front.
func ValidateCreate(input CreateInput) error {
	if strings.TrimSpace(input.EmployeeID) == "" {
		return ErrEmployeeRequired
	}
	if strings.TrimSpace(input.ProbationStartDate) == "" {
		return ErrProbationStartMissing
	}
	if len(input.Objectives) == 0 {
		return ErrNoObjectives
	}
	var total float64
	for _, line := range input.Objectives {
		total += line.DistributionPercentage
	}
	if total != 100 {
		return fmt.Errorf("objective distribution must total 100, got %g", total)
	}
	return nil
}

// ObjectivesFromTemplate copies a position's KPI template onto an
// evaluation, unscored.
func ObjectivesFromTemplate(templates []catalog.KPITemplate) []ObjectiveLine {
	lines := make([]ObjectiveLine, 0, len(templates))
	for _, tpl := range templates {
		lines = append(lines, ObjectiveLine{
			SourceKPIID:            tpl.ID,
			ObjectiveName:          tpl.ObjectiveName,
			DistributionPercentage: tpl.DistributionPercentage,
			Deliverable:            tpl.Deliverable,
			TargetPercentage:       tpl.TargetPercentage,
		})
	}
	return lines
}
