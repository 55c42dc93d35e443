package workflow

import (
	"errors"
	"fmt"
)

// Action is a workflow verb applied to a submission.
type Action string

const (
	ActionSubmit    Action = "submit"
	ActionRecommend Action = "recommend"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionReturn    Action = "return"
	ActionResubmit  Action = "resubmit"
	ActionCancel    Action = "cancel"
	ActionProcess   Action = "process"
	ActionComplete  Action = "complete"
)

var ErrInvalidTransition = errors.New("invalid workflow transition")

type transitionKey struct {
	from   Status
	action Action
}

// transitions is the closed table of legal status moves. Anything not listed
// here is rejected; there is no fallthrough.
var transitions = map[transitionKey]Status{
	{StatusDraft, ActionSubmit}: StatusForRecommendation,

	{StatusForRecommendation, ActionRecommend}: StatusPendingRecommendation,
	{StatusForRecommendation, ActionReject}:    StatusRejected,

	{StatusPendingRecommendation, ActionApprove}: StatusApproved,
	{StatusPendingRecommendation, ActionReject}:  StatusRecommendationRejected,
	{StatusPendingRecommendation, ActionReturn}:  StatusAwaitingRecommendationFix,

	{StatusRecommendationRejected, ActionReturn}: StatusAwaitingRecommendationFix,

	{StatusAwaitingRecommendationFix, ActionResubmit}: StatusPendingRecommendation,

	{StatusApproved, ActionProcess}:      StatusProcessed,
	{StatusForProcessing, ActionProcess}: StatusProcessed,
	{StatusProcessed, ActionComplete}:    StatusCompleted,
}

// familyOverrides adjusts the return/resubmit legs for families whose
// resubmission status differs from the DA recommendation default.
var familyOverrides = map[Family]map[transitionKey]Status{
	FamilyEvaluation: {
		{StatusPendingRecommendation, ActionReturn}:  StatusAwaitingResubmission,
		{StatusRecommendationRejected, ActionReturn}: StatusAwaitingResubmission,
		{StatusAwaitingResubmission, ActionResubmit}: StatusPendingRecommendation,
		// Evaluations have no processing stage: approval finalizes the
		// rating and complete closes the record.
		{StatusApproved, ActionComplete}: StatusCompleted,
	},
	// An advice skips the recommendation stages: it is cut from an already
	// approved DA and goes straight into processing.
	FamilyMDA: {
		{StatusDraft, ActionSubmit}: StatusForProcessing,
	},
}

// Next returns the status reached by applying action to from, using the DA
// recommendation family's table.
func Next(from Status, action Action) (Status, error) {
	return NextFor(FamilyDARecommendation, from, action)
}

// NextFor returns the status reached by applying action to from for the
// given family. Cancellation is handled here rather than in the table since
// it applies to every cancellable status uniformly.
func NextFor(family Family, from Status, action Action) (Status, error) {
	if action == ActionCancel {
		if !CanCancel(from) {
			return "", fmt.Errorf("%w: cannot cancel from %q", ErrInvalidTransition, from)
		}
		return StatusCancelled, nil
	}
	key := transitionKey{from: from, action: action}
	if overrides, ok := familyOverrides[family]; ok {
		if next, ok := overrides[key]; ok {
			return next, nil
		}
	}
	next, ok := transitions[key]
	if !ok {
		return "", fmt.Errorf("%w: %q does not accept %q", ErrInvalidTransition, from, action)
	}
	return next, nil
}
