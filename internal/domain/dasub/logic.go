package dasub

import (
	"fmt"
	"strings"

	"hrflow/internal/domain/catalog"
	"hrflow/internal/domain/workflow"
)

// ClampScore bounds a performance percentage to [0,100]. Nil stays nil: an
// unrated objective must not turn into a zero score.
func ClampScore(value *float64) *float64 {
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

// SumDistribution totals the distribution weights across KPI lines.
func SumDistribution(lines []ObjectiveLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.DistributionPercentage
	}
	return total
}

// ValidateDistribution enforces the 100% weighting invariant. The error
// carries the actual computed total so the caller can surface it verbatim.
func ValidateDistribution(lines []ObjectiveLine) error {
	total := SumDistribution(lines)
	if total != 100 {
		return fmt.Errorf("objective distribution must total 100, got %g", total)
	}
	return nil
}

// ValidateCreate checks the fresh-create payload before anything touches
// the database.
func ValidateCreate(input CreateInput) error {
	if strings.TrimSpace(input.EmployeeID) == "" {
		return ErrEmployeeRequired
	}
	if strings.TrimSpace(input.ToPositionID) == "" {
		return ErrPositionRequired
	}
	if len(input.KPIs) == 0 {
		return ErrNoObjectives
	}
	return ValidateDistribution(input.KPIs)
}

// NormalizeRecommendation maps a raw final recommendation to its canonical
// form the same way workflow.Normalize treats statuses: trimmed,
// upper-cased, runs of whitespace collapsed. Clients send mixed-case
// verdicts; only the canonical form is validated and stored.
func NormalizeRecommendation(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(raw))), " ")
}

// ValidateRecommendation checks the recommendation-stage payload: exactly
// one final recommendation, an extension end date when extending, and a
// score on every objective line.
func ValidateRecommendation(input RecommendationInput) error {
	switch NormalizeRecommendation(input.FinalRecommendation) {
	case RecommendationForPermanent, RecommendationNotForPermanent:
	case RecommendationForExtension:
		if strings.TrimSpace(input.ExtensionEndDate) == "" {
			return ErrExtensionDateRequired
		}
	default:
		return ErrRecommendationRequired
	}
	for _, line := range input.Objectives {
		if line.ActualPerformance == nil {
			return ErrPerformanceMissing
		}
	}
	return nil
}

// RecommendationStatuses is the set of statuses whose save path takes the
// reduced recommendation payload rather than the full submission shape.
var RecommendationStatuses = map[workflow.Status]struct{}{
	workflow.StatusForRecommendation:         {},
	workflow.StatusPendingRecommendation:     {},
	workflow.StatusRecommendationRejected:    {},
	workflow.StatusAwaitingRecommendationFix: {},
}

// InRecommendationStage reports whether the save path for the given status
// takes the recommendation payload.
func InRecommendationStage(s workflow.Status) bool {
	_, ok := RecommendationStatuses[s]
	return ok
}

// ObjectivesFromTemplate copies a position's KPI template onto a
// submission. The copy replaces whatever lines were there before; scores
// start unset.
func ObjectivesFromTemplate(templates []catalog.KPITemplate) []ObjectiveLine {
	lines := make([]ObjectiveLine, 0, len(templates))
	for _, tpl := range templates {
		lines = append(lines, ObjectiveLine{
			SourceKPIID:            tpl.ID,
			ObjectiveID:            tpl.ObjectiveID,
			ObjectiveName:          tpl.ObjectiveName,
			DistributionPercentage: tpl.DistributionPercentage,
			Deliverable:            tpl.Deliverable,
			TargetPercentage:       tpl.TargetPercentage,
			ActualPerformance:      nil,
			Remarks:                "",
		})
	}
	return lines
}
