package mda

import (
	"errors"

	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/workflow"
)

var ErrSubmissionNotApproved = errors.New("da submission must be approved before an advice is cut")

// Nature-of-action values derivable from a DA recommendation.
const (
	NaturePermanentAppointment = "PERMANENT APPOINTMENT"
	NatureReturnToPosition     = "RETURN TO ORIGINAL POSITION"
	NatureExtension            = "EXTENSION OF DEVELOPMENTAL ASSIGNMENT"
)

// PrefillFromSubmission derives an advice seed from an approved DA
// submission: position snapshots carry over verbatim, the nature of action
// follows the final recommendation, and the effective date comes from the
// extension end date when the recommendation is an extension.
func PrefillFromSubmission(sub dasub.Submission) (Prefill, error) {
	status, ok := workflow.Normalize(sub.Status)
	if !ok || (status != workflow.StatusApproved && status != workflow.StatusProcessed && status != workflow.StatusCompleted) {
		return Prefill{}, ErrSubmissionNotApproved
	}

	prefill := Prefill{
		DASubmissionID:    sub.ID,
		EmployeeID:        sub.EmployeeID,
		EmployeeName:      sub.EmployeeName,
		FromPositionTitle: sub.FromPositionTitle,
		FromDepartment:    sub.FromDepartment,
		FromSubUnit:       sub.FromSubUnit,
		FromJobRate:       sub.FromJobRate,
		FromAllowance:     sub.FromAllowance,
		ToPositionTitle:   sub.ToPositionTitle,
		ToDepartment:      sub.ToDepartment,
		ToSubUnit:         sub.ToSubUnit,
	}

	switch dasub.NormalizeRecommendation(sub.FinalRecommendation) {
	case dasub.RecommendationForPermanent:
		prefill.NatureOfAction = NaturePermanentAppointment
	case dasub.RecommendationForExtension:
		prefill.NatureOfAction = NatureExtension
		prefill.EffectiveDate = sub.ExtensionEndDate
	default:
		prefill.NatureOfAction = NatureReturnToPosition
		// Not moving to the target position after all.
		prefill.ToPositionTitle = sub.FromPositionTitle
		prefill.ToDepartment = sub.FromDepartment
		prefill.ToSubUnit = sub.FromSubUnit
	}
	return prefill, nil
}
