package pose

import "math"

// Angle returns the angle in degrees at vertex b, swept from ray b→a to ray b→c.
// The result is in [0, 360). Coincident points contribute atan2(0, 0) = 0.
func Angle(a, b, c Point3D) float64 {
	angle := (math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	// A tiny negative difference can round up to exactly 360.
	if angle >= 360 {
		angle -= 360
	}
	return angle
}

// PlanarWidth is the separation measure used for shoulder and ankle widths.
// It is sqrt(|x1²-x2²| + |y1²-y2²|), which is not the Euclidean distance; judged
// results depend on this exact form.
func PlanarWidth(a, b Point3D) float64 {
	return math.Sqrt(math.Abs(a.X*a.X-b.X*b.X) + math.Abs(a.Y*a.Y-b.Y*b.Y))
}

// JointAngles holds the eight joint angles the vault classifier reads.
type JointAngles struct {
	LeftElbow     float64 `json:"left_elbow"`
	RightElbow    float64 `json:"right_elbow"`
	LeftShoulder  float64 `json:"left_shoulder"`
	RightShoulder float64 `json:"right_shoulder"`
	LeftKnee      float64 `json:"left_knee"`
	RightKnee     float64 `json:"right_knee"`
	LeftHip       float64 `json:"left_hip"`
	RightHip      float64 `json:"right_hip"`
}

// Measure computes the joint angles of a validated landmark set.
//
// Joint triples (first ray end, vertex, second ray end):
//
//	elbow:          shoulder, elbow, wrist
//	left shoulder:  elbow, shoulder, hip
//	right shoulder: hip, shoulder, elbow
//	knee:           hip, knee, ankle
//	hip:            shoulder, hip, knee
func Measure(s LandmarkSet) (JointAngles, error) {
	if err := s.Validate(); err != nil {
		return JointAngles{}, err
	}
	return JointAngles{
		LeftElbow:     Angle(s[LeftShoulder], s[LeftElbow], s[LeftWrist]),
		RightElbow:    Angle(s[RightShoulder], s[RightElbow], s[RightWrist]),
		LeftShoulder:  Angle(s[LeftElbow], s[LeftShoulder], s[LeftHip]),
		RightShoulder: Angle(s[RightHip], s[RightShoulder], s[RightElbow]),
		LeftKnee:      Angle(s[LeftHip], s[LeftKnee], s[LeftAnkle]),
		RightKnee:     Angle(s[RightHip], s[RightKnee], s[RightAnkle]),
		LeftHip:       Angle(s[LeftShoulder], s[LeftHip], s[LeftKnee]),
		RightHip:      Angle(s[RightShoulder], s[RightHip], s[RightKnee]),
	}, nil
}

// Widths holds the shoulder and ankle separations of one frame.
type Widths struct {
	Shoulder float64 `json:"shoulder"`
	Ankle    float64 `json:"ankle"`
}

// MeasureWidths computes shoulder and ankle widths with PlanarWidth.
func MeasureWidths(s LandmarkSet) (Widths, error) {
	if err := s.Validate(); err != nil {
		return Widths{}, err
	}
	return Widths{
		Shoulder: PlanarWidth(s[RightShoulder], s[LeftShoulder]),
		Ankle:    PlanarWidth(s[RightAnkle], s[LeftAnkle]),
	}, nil
}
