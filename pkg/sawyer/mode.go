package sawyer

import "fmt"

// ControlMode selects the physical quantity outgoing commands specify.
// It is fixed at adapter construction and determines both the action
// space bounds and the command dispatch path.
type ControlMode int

const (
	// Position commands are small joint angle deltas in radians.
	Position ControlMode = iota + 1
	// Velocity commands are joint velocities in rad/s.
	Velocity
	// Effort commands are joint torques in Nm.
	Effort
)

// ParseControlMode converts a config string to a ControlMode.
func ParseControlMode(s string) (ControlMode, error) {
	switch s {
	case "position":
		return Position, nil
	case "velocity":
		return Velocity, nil
	case "effort":
		return Effort, nil
	}
	return 0, fmt.Errorf("control mode %q is not known", s)
}

func (m ControlMode) String() string {
	switch m {
	case Position:
		return "position"
	case Velocity:
		return "velocity"
	case Effort:
		return "effort"
	}
	return fmt.Sprintf("ControlMode(%d)", int(m))
}
