package vault

import "math"

// Reference angle, in degrees, of a fully extended knee or shoulder.
const straightAngle = 185

// KneeScore returns the bent-knee deduction for the smaller knee angle.
// Bands on |185-angle|: 0 → 0, (0,45] → 0.1, (45,90] → 0.3, >90 → 0.5.
func KneeScore(angle float64) float64 {
	d := math.Abs(straightAngle - angle)
	switch {
	case d > 90:
		return 0.5
	case d > 45:
		return 0.3
	case d > 0:
		return 0.1
	default:
		return 0
	}
}

// ShoulderScore returns the shoulder-angle deduction for the repulsion phase.
// Bands on |185-angle|: ≤5 → 0, (5,20] → 0.1, (20,35] → 0.3, >35 → 0.5.
func ShoulderScore(angle float64) float64 {
	d := math.Abs(straightAngle - angle)
	switch {
	case d > 35:
		return 0.5
	case d > 20:
		return 0.3
	case d > 5:
		return 0.1
	default:
		return 0
	}
}

// LegScore returns the leg-separation deduction from shoulder and ankle widths.
func LegScore(shoulderWidth, legWidth float64) float64 {
	switch {
	case legWidth > shoulderWidth:
		return 0.3
	case legWidth >= 0 && legWidth <= shoulderWidth/2:
		return 0
	default:
		return 0.1
	}
}
