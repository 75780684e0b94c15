package pose

import "math"

// Segment lengths, in pixels, used by Synthesize.
const (
	synthHalfShoulder = 40.0
	synthTorso        = 160.0
	synthUpperArm     = 90.0
	synthForearm      = 80.0
	synthThigh        = 120.0
	synthShin         = 110.0
)

// Synthesize builds a LandmarkSet whose measured joint angles equal a.
// The shoulders sit either side of origin and the torso hangs straight down in image
// coordinates. It is used to produce detector fixtures and test frames.
func Synthesize(a JointAngles, origin Point3D) LandmarkSet {
	s := make(LandmarkSet, len(RequiredJoints))

	ls := Point3D{X: origin.X - synthHalfShoulder, Y: origin.Y, Z: origin.Z}
	lh := step(ls, 90, synthTorso)
	le := step(ls, 90-a.LeftShoulder, synthUpperArm)
	lw := step(le, 270-a.LeftShoulder+a.LeftElbow, synthForearm)
	lk := step(lh, 270+a.LeftHip, synthThigh)
	la := step(lk, 450+a.LeftHip+a.LeftKnee, synthShin)

	rs := Point3D{X: origin.X + synthHalfShoulder, Y: origin.Y, Z: origin.Z}
	rh := step(rs, 90, synthTorso)
	re := step(rs, 90+a.RightShoulder, synthUpperArm)
	rw := step(re, 270+a.RightShoulder+a.RightElbow, synthForearm)
	rk := step(rh, 270+a.RightHip, synthThigh)
	ra := step(rk, 450+a.RightHip+a.RightKnee, synthShin)

	s[LeftShoulder], s[LeftElbow], s[LeftWrist] = ls, le, lw
	s[LeftHip], s[LeftKnee], s[LeftAnkle] = lh, lk, la
	s[RightShoulder], s[RightElbow], s[RightWrist] = rs, re, rw
	s[RightHip], s[RightKnee], s[RightAnkle] = rh, rk, ra
	return s
}

// step moves from p along heading deg (image coordinates) by length.
func step(p Point3D, deg, length float64) Point3D {
	rad := deg * math.Pi / 180
	return Point3D{
		X: p.X + length*math.Cos(rad),
		Y: p.Y + length*math.Sin(rad),
		Z: p.Z,
	}
}
