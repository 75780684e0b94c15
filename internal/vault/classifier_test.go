package vault

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/vaultjudge/internal/pose"
)

var (
	jumpAngles = pose.JointAngles{
		LeftElbow: 90, RightElbow: 90,
		LeftShoulder: 90, RightShoulder: 90,
		LeftKnee: 250, RightKnee: 100,
		LeftHip: 180, RightHip: 180,
	}
	firstFlightAngles = pose.JointAngles{
		LeftElbow: 180, RightElbow: 180,
		LeftShoulder: 150, RightShoulder: 100,
		LeftKnee: 185, RightKnee: 185,
		LeftHip: 180, RightHip: 180,
	}
	repulsionAngles = pose.JointAngles{
		LeftElbow: 150, RightElbow: 150,
		LeftShoulder: 200, RightShoulder: 200,
		LeftKnee: 180, RightKnee: 180,
		LeftHip: 180, RightHip: 180,
	}
	secondFlightAngles = pose.JointAngles{
		LeftElbow: 90, RightElbow: 90,
		LeftShoulder: 10, RightShoulder: 10,
		LeftKnee: 180, RightKnee: 180,
		LeftHip: 180, RightHip: 180,
	}
	completeAngles = pose.JointAngles{
		LeftElbow: 180, RightElbow: 180,
		LeftShoulder: 150, RightShoulder: 150,
		LeftKnee: 170, RightKnee: 170,
		LeftHip: 180, RightHip: 180,
	}
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		angles pose.JointAngles
		want   Phase
	}{
		{"jump", jumpAngles, Jump},
		{"first flight", firstFlightAngles, FirstFlight},
		{"repulsion", repulsionAngles, Repulsion},
		{"second flight", secondFlightAngles, SecondFlight},
		{"complete", completeAngles, Complete},
		{"nothing matches", pose.JointAngles{}, Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.angles))
		})
	}
}

func TestDetect_LastMatchWins(t *testing.T) {
	// Satisfies both jump and second flight; second flight is listed later.
	a := secondFlightAngles
	a.LeftKnee = 250
	require.True(t, isJump(a))
	require.True(t, isSecondFlight(a))
	assert.Equal(t, SecondFlight, Detect(a))
}

func TestAdvance(t *testing.T) {
	assert.Equal(t, Jump, Advance(Unclassified, Jump))
	assert.Equal(t, Unclassified, Advance(Unclassified, FirstFlight), "skipping a phase is rejected")
	assert.Equal(t, Repulsion, Advance(Repulsion, Jump), "phases never go back")
	assert.Equal(t, Repulsion, Advance(Repulsion, Repulsion))
	assert.Equal(t, Complete, Advance(Complete, Unclassified))
}

func TestEvaluate_Jump(t *testing.T) {
	r := Evaluate(Unclassified, jumpAngles, pose.Widths{Shoulder: 80, Ankle: 20})

	assert.Equal(t, Jump, r.Phase)
	assert.Equal(t, 1, r.State)
	assert.Equal(t, "Jump", r.Label)
	assert.Equal(t, ColorClassified, r.Color)
	assert.Empty(t, r.Deductions)
}

func TestEvaluate_FirstFlight(t *testing.T) {
	a := pose.JointAngles{
		LeftElbow: 180, RightElbow: 180,
		LeftShoulder: 150, RightShoulder: 100,
		LeftKnee: 180, RightKnee: 180,
	}
	r := Evaluate(Jump, a, pose.Widths{Shoulder: 100, Ankle: 40})

	assert.Equal(t, "1st Flight", r.Label)
	assert.Equal(t, 4, r.State)
	assert.Equal(t, FirstFlight, r.Phase, "the carried baseline is not bumped")

	knees, ok := r.Deduction(BentKnees)
	require.True(t, ok)
	assert.Equal(t, 0.1, knees)
	legs, ok := r.Deduction(LegSeparation)
	require.True(t, ok)
	assert.Equal(t, 0.0, legs)
}

func TestEvaluate_Unclassified(t *testing.T) {
	r := Evaluate(Unclassified, firstFlightAngles, pose.Widths{})

	assert.Equal(t, FirstFlight, r.Detected)
	assert.Equal(t, Unclassified, r.Phase)
	assert.Equal(t, 0, r.State)
	assert.Empty(t, r.Label)
	assert.Equal(t, ColorUnclassified, r.Color)
}

func TestEvaluate_Deductions(t *testing.T) {
	t.Run("repulsion scores shoulders", func(t *testing.T) {
		a := repulsionAngles
		a.LeftShoulder = 181
		r := Evaluate(FirstFlight, a, pose.Widths{Shoulder: 100, Ankle: 150})

		want := []Deduction{
			{Kind: BentKnees, Value: 0.1},
			{Kind: LegSeparation, Value: 0.3},
			{Kind: ShoulderAngle, Value: 0},
		}
		if diff := cmp.Diff(want, r.Deductions); diff != "" {
			t.Errorf("deductions mismatch (-want +got):\n%s", diff)
		}
		assert.InDelta(t, 0.4, r.TotalDeduction(), 1e-9)
	})

	t.Run("second flight with bent elbows", func(t *testing.T) {
		r := Evaluate(Repulsion, secondFlightAngles, pose.Widths{Shoulder: 100, Ankle: 10})
		v, ok := r.Deduction(BodyAlignment)
		require.True(t, ok)
		assert.Equal(t, 0.1, v)
	})

	t.Run("second flight with straight elbows", func(t *testing.T) {
		a := secondFlightAngles
		a.LeftElbow, a.RightElbow = 180, 170
		r := Evaluate(Repulsion, a, pose.Widths{Shoulder: 100, Ankle: 10})
		require.Equal(t, SecondFlight, r.Phase)
		_, ok := r.Deduction(BodyAlignment)
		assert.False(t, ok)
	})

	t.Run("complete with layout failure", func(t *testing.T) {
		r := Evaluate(SecondFlight, completeAngles, pose.Widths{})
		require.Equal(t, Complete, r.Phase)
		v, ok := r.Deduction(LayoutFailure)
		require.True(t, ok)
		assert.Equal(t, 0.1, v)
		_, ok = r.Deduction(BentKnees)
		assert.False(t, ok)
	})

	t.Run("complete with piked hips", func(t *testing.T) {
		a := completeAngles
		a.LeftHip, a.RightHip = 100, 100
		r := Evaluate(SecondFlight, a, pose.Widths{})
		assert.Empty(t, r.Deductions)
	})
}

func TestTracker_FullVault(t *testing.T) {
	sequence := []pose.JointAngles{
		jumpAngles,
		firstFlightAngles,
		repulsionAngles,
		secondFlightAngles,
		completeAngles,
	}

	tracker := NewTracker()
	var labels []string
	var states []int
	for i, a := range sequence {
		r, err := tracker.Observe(pose.Synthesize(a, pose.Point3D{X: 320, Y: 180}))
		require.NoErrorf(t, err, "frame %d", i)
		labels = append(labels, r.Label)
		states = append(states, r.State)
	}

	wantLabels := []string{"Jump", "1st Flight", "Repulsion", "2nd Flight", "Complete"}
	if diff := cmp.Diff(wantLabels, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 4, 3, 4, 5}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Complete, tracker.Phase())

	tracker.Reset()
	assert.Equal(t, Unclassified, tracker.Phase())
}

func TestTracker_RepulsionLegScore(t *testing.T) {
	lm := pose.Synthesize(repulsionAngles, pose.Point3D{X: 320, Y: 180})
	widths, err := pose.MeasureWidths(lm)
	require.NoError(t, err)

	r, err := Classify(FirstFlight, lm)
	require.NoError(t, err)
	v, ok := r.Deduction(LegSeparation)
	require.True(t, ok)
	assert.Equal(t, LegScore(widths.Shoulder, widths.Ankle), v)
	assert.Equal(t, widths, r.Widths)
}

func TestTracker_DataError(t *testing.T) {
	tracker := NewTracker()
	_, err := tracker.Observe(pose.Synthesize(jumpAngles, pose.Point3D{}))
	require.NoError(t, err)

	lm := pose.Synthesize(firstFlightAngles, pose.Point3D{})
	delete(lm, pose.LeftKnee)
	_, err = tracker.Observe(lm)

	var derr *pose.DataError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, []pose.Joint{pose.LeftKnee}, derr.Missing)
	assert.Equal(t, Jump, tracker.Phase(), "a bad frame leaves the phase alone")
}

func TestClassify_TorsoCenter(t *testing.T) {
	lm := pose.Synthesize(jumpAngles, pose.Point3D{X: 300, Y: 100})
	r, err := Classify(Unclassified, lm)
	require.NoError(t, err)
	assert.InDelta(t, 300, r.Torso.X, 1e-9)
	assert.InDelta(t, 260, r.Torso.Y, 1e-9)
}

func TestEvaluate_Monotonic(t *testing.T) {
	presets := []pose.JointAngles{
		jumpAngles, firstFlightAngles, repulsionAngles, secondFlightAngles, completeAngles,
	}
	rng := rand.New(rand.NewSource(7))
	randomAngle := func() float64 { return rng.Float64() * 360 }

	for run := 0; run < 200; run++ {
		prev := Unclassified
		for frame := 0; frame < 40; frame++ {
			var a pose.JointAngles
			if rng.Intn(2) == 0 {
				a = presets[rng.Intn(len(presets))]
			} else {
				a = pose.JointAngles{
					LeftElbow: randomAngle(), RightElbow: randomAngle(),
					LeftShoulder: randomAngle(), RightShoulder: randomAngle(),
					LeftKnee: randomAngle(), RightKnee: randomAngle(),
					LeftHip: randomAngle(), RightHip: randomAngle(),
				}
			}
			r := Evaluate(prev, a, pose.Widths{Shoulder: 80, Ankle: rng.Float64() * 160})

			if r.Phase < prev || r.Phase > prev+1 {
				t.Fatalf("run %d frame %d: phase moved from %v to %v", run, frame, prev, r.Phase)
			}
			assert.True(t, r.Phase.Valid())
			prev = r.Phase
		}
	}
}

func TestPhase_Metadata(t *testing.T) {
	assert.Equal(t, "first_flight", FirstFlight.String())
	assert.Equal(t, "unclassified", Phase(9).String())
	assert.False(t, Phase(9).Valid())
	assert.Equal(t, ColorUnclassified, Unclassified.Color())
	assert.Equal(t, "Failure to maintain layout(pike down)", LayoutFailure.Title())
	assert.Equal(t, 5, Complete.State())
}
