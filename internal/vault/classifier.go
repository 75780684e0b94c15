package vault

import (
	"image/color"
	"math"

	"github.com/ayusman/vaultjudge/internal/pose"
)

// DeductionKind names a judging criterion.
type DeductionKind string

const (
	BentKnees     DeductionKind = "bent_knees"
	LegSeparation DeductionKind = "leg_separation"
	ShoulderAngle DeductionKind = "shoulder_angle"
	BodyAlignment DeductionKind = "body_alignment"
	LayoutFailure DeductionKind = "layout_failure"
)

// DeductionKinds lists every kind in display order.
var DeductionKinds = []DeductionKind{BentKnees, LegSeparation, ShoulderAngle, BodyAlignment, LayoutFailure}

// Title returns the overlay caption for the deduction.
func (k DeductionKind) Title() string {
	switch k {
	case BentKnees:
		return "Bent knees"
	case LegSeparation:
		return "Leg Separation"
	case ShoulderAngle:
		return "Shoulder angle"
	case BodyAlignment:
		return "Body alignment"
	case LayoutFailure:
		return "Failure to maintain layout(pike down)"
	default:
		return string(k)
	}
}

// flagDeduction is the fixed value of the alignment and layout deductions.
const flagDeduction = 0.1

// Deduction is one penalty computed for a frame.
type Deduction struct {
	Kind  DeductionKind `json:"kind"`
	Value float64       `json:"value"`
}

// Result is the classification of one frame.
type Result struct {
	// Phase is the accepted phase, carried into the next frame.
	Phase Phase `json:"phase"`
	// Detected is the raw phase the frame's angles matched before gating.
	Detected   Phase            `json:"detected"`
	State      int              `json:"state"`
	Label      string           `json:"label"`
	Color      color.RGBA       `json:"-"`
	Angles     pose.JointAngles `json:"angles"`
	Widths     pose.Widths      `json:"widths"`
	Torso      pose.Point3D     `json:"torso"`
	Deductions []Deduction      `json:"deductions,omitempty"`
}

// Deduction returns the value of the given kind, if it was scored.
func (r Result) Deduction(kind DeductionKind) (float64, bool) {
	for _, d := range r.Deductions {
		if d.Kind == kind {
			return d.Value, true
		}
	}
	return 0, false
}

// TotalDeduction sums every deduction scored for the frame.
func (r Result) TotalDeduction() float64 {
	var total float64
	for _, d := range r.Deductions {
		total += d.Value
	}
	return total
}

// Classify runs one frame through the phase rules and the progression gate.
// prev is the phase carried from the previous frame. Incomplete landmarks produce a
// *pose.DataError and no classification.
func Classify(prev Phase, lm pose.LandmarkSet) (Result, error) {
	angles, err := pose.Measure(lm)
	if err != nil {
		return Result{}, err
	}
	widths, err := pose.MeasureWidths(lm)
	if err != nil {
		return Result{}, err
	}
	torso, err := pose.TorsoCenter(lm)
	if err != nil {
		return Result{}, err
	}

	r := Evaluate(prev, angles, widths)
	r.Torso = torso
	return r, nil
}

// Evaluate classifies pre-measured angles and widths.
func Evaluate(prev Phase, angles pose.JointAngles, widths pose.Widths) Result {
	detected := Detect(angles)
	phase := Advance(prev, detected)

	r := Result{
		Phase:    phase,
		Detected: detected,
		State:    phase.State(),
		Label:    phase.Label(),
		Color:    phase.Color(),
		Angles:   angles,
		Widths:   widths,
	}
	r.Deductions = score(phase, angles, widths)
	return r
}

func score(phase Phase, a pose.JointAngles, w pose.Widths) []Deduction {
	var out []Deduction

	switch phase {
	case FirstFlight, Repulsion, SecondFlight:
		out = append(out,
			Deduction{Kind: BentKnees, Value: KneeScore(math.Min(a.LeftKnee, a.RightKnee))},
			Deduction{Kind: LegSeparation, Value: LegScore(w.Shoulder, w.Ankle)},
		)
	}

	if phase == Repulsion {
		out = append(out, Deduction{
			Kind:  ShoulderAngle,
			Value: ShoulderScore(math.Min(a.LeftShoulder, a.RightShoulder)),
		})
	}

	if phase == SecondFlight && !bothBetween(a.LeftElbow, a.RightElbow, 165, 195) {
		out = append(out, Deduction{Kind: BodyAlignment, Value: flagDeduction})
	}

	if phase == Complete &&
		eitherBetween(a.LeftKnee, a.RightKnee, 165, 195) &&
		eitherBetween(a.LeftHip, a.RightHip, 135, 195) {
		out = append(out, Deduction{Kind: LayoutFailure, Value: flagDeduction})
	}

	return out
}

// Tracker carries the running phase of one video. It is not safe for concurrent use:
// frames must be observed in order.
type Tracker struct {
	phase Phase
}

// NewTracker returns a Tracker in the Unclassified phase.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe classifies the next frame and advances the tracker.
// On error the tracker keeps its phase.
func (t *Tracker) Observe(lm pose.LandmarkSet) (Result, error) {
	r, err := Classify(t.phase, lm)
	if err != nil {
		return Result{}, err
	}
	t.phase = r.Phase
	return r, nil
}

// Phase returns the phase carried into the next frame.
func (t *Tracker) Phase() Phase {
	return t.phase
}

// Reset returns the tracker to Unclassified for a new video.
func (t *Tracker) Reset() {
	t.phase = Unclassified
}
