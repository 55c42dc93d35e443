package workflow

// Family distinguishes the form families that share the status pipeline but
// differ in which status makes a record eligible for resubmission.
type Family string

const (
	FamilyDARecommendation Family = "da_recommendation"
	FamilyEvaluation       Family = "evaluation"
	FamilyMDA              Family = "mda"
	FamilyPDP              Family = "pdp"
)

// updateDisabled is the set of statuses in which a submission's content may
// no longer be edited by its owner.
var updateDisabled = map[Status]struct{}{
	StatusApproved:  {},
	StatusProcessed: {},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRejected:  {},
}

// CanUpdate reports whether a submission in the given status accepts content
// edits. The predicate is pure: same status in, same answer out.
func CanUpdate(s Status) bool {
	_, disabled := updateDisabled[s]
	return !disabled
}

// resubmitEligible maps each family to the single status from which a
// resubmission is accepted. Exact match only.
var resubmitEligible = map[Family]Status{
	FamilyDARecommendation: StatusAwaitingRecommendationFix,
	FamilyEvaluation:       StatusAwaitingResubmission,
}

// CanResubmit reports whether a record of the given family and status may be
// resubmitted. Families without a resubmission stage always return false.
func CanResubmit(family Family, s Status) bool {
	eligible, ok := resubmitEligible[family]
	return ok && s == eligible
}

// CanCancel reports whether the submitter may still withdraw the record.
// Once approved or beyond, cancellation requires a new workflow instead.
func CanCancel(s Status) bool {
	switch s {
	case StatusApproved, StatusProcessed, StatusCompleted, StatusCancelled, StatusRejected:
		return false
	}
	return true
}

// Actions is the capability set returned alongside every submission so
// clients never have to re-derive gating from the status string. Each flag
// is the status gate ANDed with the caller's permission for that action.
type Actions struct {
	CanUpdate   bool `json:"can_update"`
	CanResubmit bool `json:"can_resubmit"`
	CanCancel   bool `json:"can_cancel"`
}

// ResolveActions combines the status gates with the caller's permissions.
// A capability is granted only when both agree.
func ResolveActions(family Family, s Status, mayWrite, mayCancel bool) Actions {
	return Actions{
		CanUpdate:   mayWrite && CanUpdate(s),
		CanResubmit: mayWrite && CanResubmit(family, s),
		CanCancel:   mayCancel && CanCancel(s),
	}
}
