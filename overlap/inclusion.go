package overlap

import "math"

// DefaultInclusionThreshold suppresses records covered almost entirely by the
// target, which are nearly always the target itself or a duplicate of it.
const DefaultInclusionThreshold = 0.98

// ShouldInclude decides whether a finding is reported. A record whose own
// area is unknown or not positive is always included, and so is any case the
// ratio cannot be computed for.
func ShouldInclude(overlapHa float64, subjectTotalHa *float64, threshold float64) bool {
	if subjectTotalHa == nil || *subjectTotalHa <= 0 || math.IsNaN(*subjectTotalHa) {
		return true
	}
	ratio := overlapHa / *subjectTotalHa
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return true
	}
	return ratio < threshold
}
