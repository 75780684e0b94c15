package detector

import "github.com/ayusman/vaultjudge/internal/pose"

// Preset poses are centred for a 640x640 frame.
var presetOrigin = pose.Point3D{X: 320, Y: 160}

// Joint angles for each preset. Every set matches exactly one vault phase rule.
var (
	JumpAngles = pose.JointAngles{
		LeftElbow: 90, RightElbow: 90,
		LeftShoulder: 90, RightShoulder: 90,
		LeftKnee: 250, RightKnee: 100,
		LeftHip: 180, RightHip: 180,
	}
	FirstFlightAngles = pose.JointAngles{
		LeftElbow: 180, RightElbow: 180,
		LeftShoulder: 150, RightShoulder: 100,
		LeftKnee: 185, RightKnee: 185,
		LeftHip: 180, RightHip: 180,
	}
	RepulsionAngles = pose.JointAngles{
		LeftElbow: 150, RightElbow: 150,
		LeftShoulder: 200, RightShoulder: 200,
		LeftKnee: 180, RightKnee: 180,
		LeftHip: 180, RightHip: 180,
	}
	SecondFlightAngles = pose.JointAngles{
		LeftElbow: 90, RightElbow: 90,
		LeftShoulder: 10, RightShoulder: 10,
		LeftKnee: 180, RightKnee: 180,
		LeftHip: 180, RightHip: 180,
	}
	CompleteAngles = pose.JointAngles{
		LeftElbow: 180, RightElbow: 180,
		LeftShoulder: 150, RightShoulder: 150,
		LeftKnee: 170, RightKnee: 170,
		LeftHip: 180, RightHip: 180,
	}
)

func preset(a pose.JointAngles) *pose.LandmarkSet {
	lm := pose.Synthesize(a, presetOrigin)
	return &lm
}

// JumpPose returns landmarks of an athlete in the take-off jump.
func JumpPose() *pose.LandmarkSet { return preset(JumpAngles) }

// FirstFlightPose returns landmarks of an athlete in first flight.
func FirstFlightPose() *pose.LandmarkSet { return preset(FirstFlightAngles) }

// RepulsionPose returns landmarks of an athlete pushing off the table.
func RepulsionPose() *pose.LandmarkSet { return preset(RepulsionAngles) }

// SecondFlightPose returns landmarks of an athlete in second flight.
func SecondFlightPose() *pose.LandmarkSet { return preset(SecondFlightAngles) }

// CompletePose returns landmarks of an athlete on landing.
func CompletePose() *pose.LandmarkSet { return preset(CompleteAngles) }

// VaultSequence returns one preset per phase, in performance order.
func VaultSequence() []*pose.LandmarkSet {
	return []*pose.LandmarkSet{
		JumpPose(),
		FirstFlightPose(),
		RepulsionPose(),
		SecondFlightPose(),
		CompletePose(),
	}
}
