package sawyer

import (
	"context"
	"time"
)

// Pose is an end-effector position and orientation quaternion (x, y, z, w).
type Pose struct {
	Position    [3]float64
	Orientation [4]float64
}

// Twist is an end-effector linear and angular velocity.
type Twist struct {
	Linear  [3]float64
	Angular [3]float64
}

// Wrench is an end-effector force and torque.
type Wrench struct {
	Force  [3]float64
	Torque [3]float64
}

// Limb is the middleware handle for one arm. Implementations talk to the
// robot (pkg/intera), to a serial desk arm (pkg/miniarm), or to a mock
// in tests. All reads return the current hardware state; nothing is
// cached on this side of the interface.
type Limb interface {
	JointAngles(ctx context.Context) (map[JointName]float64, error)
	JointVelocities(ctx context.Context) (map[JointName]float64, error)
	JointEfforts(ctx context.Context) (map[JointName]float64, error)

	EndpointPose(ctx context.Context) (Pose, error)
	EndpointVelocity(ctx context.Context) (Twist, error)
	EndpointEffort(ctx context.Context) (Wrench, error)

	SetJointPositions(ctx context.Context, targets map[JointName]float64) error
	SetJointVelocities(ctx context.Context, velocities map[JointName]float64) error
	SetJointTorques(ctx context.Context, torques map[JointName]float64) error

	// MoveToJointPositions blocks until the arm reaches the targets or
	// the timeout expires. A timeout is not an error.
	MoveToJointPositions(ctx context.Context, targets map[JointName]float64, timeout time.Duration) error

	// InverseKinematics resolves an end-effector pose to joint angles.
	InverseKinematics(ctx context.Context, pose Pose) (map[JointName]float64, error)

	// Limits returns the velocity and effort limits the robot reported
	// at startup.
	Limits(ctx context.Context) (JointLimits, error)

	// Enabled reports whether the robot is enabled.
	Enabled(ctx context.Context) (bool, error)

	// Closed reports whether the middleware connection has shut down.
	Closed() bool
}

// Gripper is the middleware handle for the end-effector actuator.
type Gripper interface {
	// Open fully opens the gripper.
	Open(ctx context.Context) error
	// SetPosition commands the gripper aperture, 0 (closed) to 100 (open).
	SetPosition(ctx context.Context, position float64) error
}

// Validity determines whether a joint configuration is collision-free.
// The verdict comes entirely from the external planning scene; the
// adapter passes it through unmodified.
type Validity interface {
	CheckState(ctx context.Context, names []JointName, positions []float64, group string) (bool, error)
}
