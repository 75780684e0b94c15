// Package pose provides body landmark types and the planar geometry used to judge them.
package pose

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Joint identifies a body landmark. Values follow the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type Joint int

const (
	LeftShoulder  Joint = 11
	RightShoulder Joint = 12
	LeftElbow     Joint = 13
	RightElbow    Joint = 14
	LeftWrist     Joint = 15
	RightWrist    Joint = 16
	LeftHip       Joint = 23
	RightHip      Joint = 24
	LeftKnee      Joint = 25
	RightKnee     Joint = 26
	LeftAnkle     Joint = 27
	RightAnkle    Joint = 28

	// NumLandmarks is the number of landmarks a full MediaPipe pose result carries.
	NumLandmarks = 33
)

var jointNames = map[Joint]string{
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
}

func (j Joint) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return fmt.Sprintf("joint_%d", int(j))
}

// RequiredJoints lists every joint the vault classifier reads.
var RequiredJoints = []Joint{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Point3D is a landmark position. X and Y are in frame pixels, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0)
}

// LandmarkSet holds the landmarks detected in one frame.
type LandmarkSet map[Joint]Point3D

// DataError reports landmarks that are absent or carry non-finite coordinates.
type DataError struct {
	Missing []Joint
	Invalid []Joint
}

func (e *DataError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+joinJoints(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "non-finite "+joinJoints(e.Invalid))
	}
	return "landmark data error: " + strings.Join(parts, "; ")
}

func joinJoints(joints []Joint) string {
	names := make([]string, len(joints))
	for i, j := range joints {
		names[i] = j.String()
	}
	return strings.Join(names, ", ")
}

// Validate checks that every required joint is present and finite.
// It returns a *DataError otherwise.
func (s LandmarkSet) Validate() error {
	var derr DataError
	for _, j := range RequiredJoints {
		p, ok := s[j]
		switch {
		case !ok:
			derr.Missing = append(derr.Missing, j)
		case !p.finite():
			derr.Invalid = append(derr.Invalid, j)
		}
	}
	if len(derr.Missing) == 0 && len(derr.Invalid) == 0 {
		return nil
	}
	sort.Slice(derr.Missing, func(a, b int) bool { return derr.Missing[a] < derr.Missing[b] })
	sort.Slice(derr.Invalid, func(a, b int) bool { return derr.Invalid[a] < derr.Invalid[b] })
	return &derr
}

// FromNormalized converts detector output in [0,1] image space into a LandmarkSet in
// frame pixels. X and Y are truncated to whole pixels and Z is scaled by the frame width.
func FromNormalized(points []Point3D, width, height int) LandmarkSet {
	set := make(LandmarkSet, len(points))
	for i := 0; i < NumLandmarks && i < len(points); i++ {
		p := points[i]
		set[Joint(i)] = Point3D{
			X: math.Trunc(p.X * float64(width)),
			Y: math.Trunc(p.Y * float64(height)),
			Z: p.Z * float64(width),
		}
	}
	return set
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return Point3D{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// TorsoCenter returns the midpoint of the two hip landmarks. Overlays are anchored to it.
func TorsoCenter(s LandmarkSet) (Point3D, error) {
	left, lok := s[LeftHip]
	right, rok := s[RightHip]
	if !lok || !rok {
		derr := &DataError{}
		if !lok {
			derr.Missing = append(derr.Missing, LeftHip)
		}
		if !rok {
			derr.Missing = append(derr.Missing, RightHip)
		}
		return Point3D{}, derr
	}
	return Midpoint(left, right), nil
}
