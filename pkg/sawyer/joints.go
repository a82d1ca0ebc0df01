// Package sawyer adapts a Sawyer arm to the numeric vector convention
// used by reinforcement-learning environments.
package sawyer

// JointName identifies a joint on the arm.
type JointName string

// Joint names for the right arm, base to wrist.
const (
	RightJ0 JointName = "right_j0"
	RightJ1 JointName = "right_j1"
	RightJ2 JointName = "right_j2"
	RightJ3 JointName = "right_j3"
	RightJ4 JointName = "right_j4"
	RightJ5 JointName = "right_j5"
	RightJ6 JointName = "right_j6"
)

// ArmJoints returns all arm joint names in order (matching joint indices 0-6).
func ArmJoints() []JointName {
	return []JointName{
		RightJ0,
		RightJ1,
		RightJ2,
		RightJ3,
		RightJ4,
		RightJ5,
		RightJ6,
	}
}

// Factory joint position limits in radians, indexed by joint number.
var (
	jointPositionLow = []float64{
		-3.0503, -3.8095, -3.0426, -3.0439, -2.9761, -2.9761, -4.7124,
	}
	jointPositionHigh = []float64{
		3.0503, 2.2736, 3.0426, 3.0439, 2.9761, 2.9761, 4.7124,
	}
)

// PositionLimit returns the factory position bounds for a joint. ok is
// false for names that are not arm joints.
func PositionLimit(name JointName) (low, high float64, ok bool) {
	i := jointIndex(name)
	if i < 0 {
		return 0, 0, false
	}
	return jointPositionLow[i], jointPositionHigh[i], true
}

// jointIndex returns the joint number for a joint name, or -1 if the
// name is not one of the arm joints.
func jointIndex(name JointName) int {
	for i, j := range ArmJoints() {
		if j == name {
			return i
		}
	}
	return -1
}

// JointLimits holds per-joint velocity and effort magnitudes as reported
// by the robot at startup.
type JointLimits struct {
	Velocity map[JointName]float64
	Effort   map[JointName]float64
}
