package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestAngle(t *testing.T) {
	b := Point3D{X: 0, Y: 0}

	t.Run("same direction is zero", func(t *testing.T) {
		got := Angle(Point3D{X: 2, Y: 0}, b, Point3D{X: 1, Y: 0})
		assert.InDelta(t, 0, got, epsilon)
	})

	t.Run("opposite direction is 180", func(t *testing.T) {
		got := Angle(Point3D{X: 2, Y: 0}, b, Point3D{X: -1, Y: 0})
		assert.InDelta(t, 180, got, epsilon)
	})

	t.Run("sweep is directional", func(t *testing.T) {
		a := Point3D{X: 1, Y: 0}
		c := Point3D{X: 0, Y: 1}
		assert.InDelta(t, 90, Angle(a, b, c), epsilon)
		assert.InDelta(t, 270, Angle(c, b, a), epsilon)
	})

	t.Run("coincident points are defined", func(t *testing.T) {
		got := Angle(b, b, b)
		assert.False(t, math.IsNaN(got))
		assert.InDelta(t, 0, got, epsilon)
	})

	t.Run("result always in range", func(t *testing.T) {
		for deg := -720.0; deg <= 720; deg += 7.5 {
			rad := deg * math.Pi / 180
			c := Point3D{X: math.Cos(rad), Y: math.Sin(rad)}
			got := Angle(Point3D{X: 1, Y: 0.3}, b, c)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		}
	})

	t.Run("z is ignored", func(t *testing.T) {
		flat := Angle(Point3D{X: 1}, b, Point3D{Y: 1})
		deep := Angle(Point3D{X: 1, Z: 50}, Point3D{Z: -3}, Point3D{Y: 1, Z: 9})
		assert.InDelta(t, flat, deep, epsilon)
	})
}

func TestPlanarWidth(t *testing.T) {
	t.Run("uses squared coordinate differences", func(t *testing.T) {
		a := Point3D{X: 3, Y: 4}
		b := Point3D{X: 1, Y: 2}
		// |9-1| + |16-4| = 20
		assert.InDelta(t, math.Sqrt(20), PlanarWidth(a, b), epsilon)
	})

	t.Run("is symmetric", func(t *testing.T) {
		a := Point3D{X: 300, Y: 120}
		b := Point3D{X: 340, Y: 118}
		assert.InDelta(t, PlanarWidth(a, b), PlanarWidth(b, a), epsilon)
	})

	t.Run("identical points are zero", func(t *testing.T) {
		p := Point3D{X: 12, Y: 7}
		assert.Zero(t, PlanarWidth(p, p))
	})
}

func TestMeasure(t *testing.T) {
	want := JointAngles{
		LeftElbow: 170, RightElbow: 160,
		LeftShoulder: 150, RightShoulder: 100,
		LeftKnee: 185, RightKnee: 175,
		LeftHip: 140, RightHip: 200,
	}
	got, err := Measure(Synthesize(want, Point3D{X: 320, Y: 200}))
	require.NoError(t, err)

	assert.InDelta(t, want.LeftElbow, got.LeftElbow, 1e-6)
	assert.InDelta(t, want.RightElbow, got.RightElbow, 1e-6)
	assert.InDelta(t, want.LeftShoulder, got.LeftShoulder, 1e-6)
	assert.InDelta(t, want.RightShoulder, got.RightShoulder, 1e-6)
	assert.InDelta(t, want.LeftKnee, got.LeftKnee, 1e-6)
	assert.InDelta(t, want.RightKnee, got.RightKnee, 1e-6)
	assert.InDelta(t, want.LeftHip, got.LeftHip, 1e-6)
	assert.InDelta(t, want.RightHip, got.RightHip, 1e-6)
}

func TestMeasure_MissingJoint(t *testing.T) {
	lm := Synthesize(JointAngles{LeftElbow: 90, RightElbow: 90}, Point3D{})
	delete(lm, RightAnkle)
	delete(lm, LeftWrist)

	_, err := Measure(lm)
	require.Error(t, err)

	var derr *DataError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, []Joint{LeftWrist, RightAnkle}, derr.Missing)
	assert.Contains(t, err.Error(), "left_wrist")
}

func TestValidate_NonFinite(t *testing.T) {
	lm := Synthesize(JointAngles{}, Point3D{})
	lm[LeftKnee] = Point3D{X: math.NaN(), Y: 1}
	lm[RightHip] = Point3D{X: 1, Y: math.Inf(1)}

	err := lm.Validate()
	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Empty(t, derr.Missing)
	assert.Equal(t, []Joint{RightHip, LeftKnee}, derr.Invalid)
}

func TestTorsoCenter(t *testing.T) {
	lm := LandmarkSet{
		LeftHip:  {X: 100, Y: 300, Z: 2},
		RightHip: {X: 140, Y: 310, Z: 4},
	}
	c, err := TorsoCenter(lm)
	require.NoError(t, err)
	assert.Equal(t, Point3D{X: 120, Y: 305, Z: 3}, c)

	_, err = TorsoCenter(LandmarkSet{LeftHip: {}})
	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []Joint{RightHip}, derr.Missing)
}

func TestFromNormalized(t *testing.T) {
	points := make([]Point3D, NumLandmarks)
	points[LeftShoulder] = Point3D{X: 0.5, Y: 0.25, Z: -0.1}
	points[RightAnkle] = Point3D{X: 0.999, Y: 0.999, Z: 0.2}

	lm := FromNormalized(points, 1280, 640)

	assert.Len(t, lm, NumLandmarks)
	assert.Equal(t, 640.0, lm[LeftShoulder].X)
	assert.Equal(t, 160.0, lm[LeftShoulder].Y)
	assert.InDelta(t, -128, lm[LeftShoulder].Z, 1e-9)
	assert.Equal(t, 1278.0, lm[RightAnkle].X)
	assert.Equal(t, 639.0, lm[RightAnkle].Y)
}

func TestJoint_String(t *testing.T) {
	assert.Equal(t, "left_knee", LeftKnee.String())
	assert.Equal(t, "joint_0", Joint(0).String())
}
