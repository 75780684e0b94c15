package vault

import "github.com/ayusman/vaultjudge/internal/pose"

// rule pairs a candidate phase with the angle predicate that detects it.
type rule struct {
	phase Phase
	match func(a pose.JointAngles) bool
}

// phaseRules are evaluated in order and the last matching rule wins. The order is
// significant: second flight overlaps jump and is listed after it, so a frame that
// satisfies both detects as second flight and the progression gate sorts it out.
var phaseRules = []rule{
	{Jump, isJump},
	{SecondFlight, isSecondFlight},
	{FirstFlight, isFirstFlight},
	{Repulsion, isRepulsion},
	{Complete, isComplete},
}

// between reports whether v lies in the open interval (lo, hi).
func between(v, lo, hi float64) bool {
	return v > lo && v < hi
}

func bothBetween(l, r, lo, hi float64) bool {
	return between(l, lo, hi) && between(r, lo, hi)
}

func eitherBetween(l, r, lo, hi float64) bool {
	return between(l, lo, hi) || between(r, lo, hi)
}

func isJump(a pose.JointAngles) bool {
	return bothBetween(a.LeftElbow, a.RightElbow, 0, 360) &&
		bothBetween(a.LeftShoulder, a.RightShoulder, 0, 360) &&
		eitherBetween(a.LeftKnee, a.RightKnee, 210, 360)
}

func isSecondFlight(a pose.JointAngles) bool {
	return bothBetween(a.LeftElbow, a.RightElbow, 0, 360) &&
		bothBetween(a.LeftShoulder, a.RightShoulder, 0, 20) &&
		eitherBetween(a.LeftKnee, a.RightKnee, 0, 360)
}

func isFirstFlight(a pose.JointAngles) bool {
	return bothBetween(a.LeftElbow, a.RightElbow, 145, 215) &&
		between(a.LeftShoulder, 145, 170) && a.RightShoulder > 65 &&
		eitherBetween(a.LeftKnee, a.RightKnee, 165, 195)
}

func isRepulsion(a pose.JointAngles) bool {
	return bothBetween(a.LeftKnee, a.RightKnee, 170, 190) &&
		(a.LeftShoulder > 180 || a.RightShoulder > 180) &&
		eitherBetween(a.LeftElbow, a.RightElbow, 120, 190)
}

func isComplete(a pose.JointAngles) bool {
	return bothBetween(a.LeftElbow, a.RightElbow, 165, 195) &&
		bothBetween(a.LeftShoulder, a.RightShoulder, 85, 195) &&
		eitherBetween(a.LeftKnee, a.RightKnee, 135, 180)
}

// Detect returns the raw phase suggested by a single frame's angles, before the
// progression gate is applied.
func Detect(a pose.JointAngles) Phase {
	detected := Unclassified
	for _, r := range phaseRules {
		if r.match(a) {
			detected = r.phase
		}
	}
	return detected
}

// Advance applies the progression gate: the detected phase is accepted only when it is
// exactly one step beyond prev, otherwise prev is held.
func Advance(prev, detected Phase) Phase {
	if detected == prev+1 {
		return detected
	}
	return prev
}
