package dasub

// Final recommendation values for a developmental assignment. Exactly one
// must be chosen when the recommendation is recorded.
const (
	RecommendationForPermanent    = "FOR PERMANENT APPOINTMENT"
	RecommendationNotForPermanent = "NOT FOR PERMANENT APPOINTMENT"
	RecommendationForExtension    = "FOR EXTENSION"
)

// ReferencePrefix heads every generated DA reference number, e.g.
// DA-2026-0042.
const ReferencePrefix = "DA"
