// Package vault classifies gymnastics vault phases from body joint angles and scores
// the deductions a judge would take in each phase.
package vault

import "image/color"

// Phase is a stage of a vault performance. Phases only advance one step at a time.
type Phase int

const (
	Unclassified Phase = iota
	Jump
	FirstFlight
	Repulsion
	SecondFlight
	Complete
)

// Display labels, as overlaid on annotated frames.
const (
	LabelJump         = "Jump"
	LabelFirstFlight  = "1st Flight"
	LabelRepulsion    = "Repulsion"
	LabelSecondFlight = "2nd Flight"
	LabelComplete     = "Complete"
)

var (
	// ColorClassified is used for labels of recognised phases.
	ColorClassified = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	// ColorUnclassified is used before the first phase is recognised.
	ColorUnclassified = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Label returns the display label, or "" for Unclassified.
func (p Phase) Label() string {
	switch p {
	case Jump:
		return LabelJump
	case FirstFlight:
		return LabelFirstFlight
	case Repulsion:
		return LabelRepulsion
	case SecondFlight:
		return LabelSecondFlight
	case Complete:
		return LabelComplete
	default:
		return ""
	}
}

func (p Phase) String() string {
	switch p {
	case Jump:
		return "jump"
	case FirstFlight:
		return "first_flight"
	case Repulsion:
		return "repulsion"
	case SecondFlight:
		return "second_flight"
	case Complete:
		return "complete"
	default:
		return "unclassified"
	}
}

// Color returns the overlay colour for the phase label.
func (p Phase) Color() color.RGBA {
	if p.Label() != "" {
		return ColorClassified
	}
	return ColorUnclassified
}

// State returns the internal state number reported alongside the label.
// First flight reports 4: the legacy classifier bumped it by two once labelled.
// The bump never feeds back into progression.
func (p Phase) State() int {
	if p == FirstFlight {
		return int(p) + 2
	}
	return int(p)
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= Unclassified && p <= Complete
}
