package sawyer

import (
	"context"
	"fmt"
	"time"
)

const (
	// Fraction of a commanded position delta that is actually applied.
	positionDamping = 0.1
	// Fraction of the hardware velocity limit exposed to the policy.
	velocityDamping = 0.1
	// Per-step position delta bound in radians.
	positionDelta = 0.02
	// Gripper aperture command range.
	gripperMax = 100

	resetTimeout = 5 * time.Second
	moveTimeout  = 15 * time.Second
)

// RobotConfig fixes the adapter's behavior at construction.
type RobotConfig struct {
	// InitialJointPositions is the start configuration Reset moves to.
	// Its keys are the set of controlled joints; commands and the
	// joint-space observation fields cover exactly these joints, in
	// ArmJoints order.
	InitialJointPositions map[JointName]float64

	// PlanningGroup scopes validity checks on the planning scene.
	PlanningGroup string

	// Mode selects position, velocity or effort control. An unknown
	// mode is not rejected here; it surfaces when the action space is
	// first requested.
	Mode ControlMode

	// WithGripper appends a gripper aperture slot to the action vector.
	WithGripper bool
}

// Robot translates between the flat action/observation vectors a policy
// uses and the named joint maps of the robot middleware. All reads go
// straight to the hardware; the only state fixed at construction is the
// controlled joint set, the control mode and the startup joint limits.
type Robot struct {
	limb     Limb
	gripper  Gripper
	validity Validity

	joints  []JointName
	initial map[JointName]float64
	group   string
	mode    ControlMode
	withGr  bool
	limits  JointLimits
}

// NewRobot builds the adapter and performs the one-time joint limits
// read from the middleware.
func NewRobot(ctx context.Context, limb Limb, gripper Gripper, validity Validity, cfg RobotConfig) (*Robot, error) {
	if len(cfg.InitialJointPositions) == 0 {
		return nil, fmt.Errorf("no controlled joints configured")
	}

	// Fixed iteration order for command and observation vectors.
	var joints []JointName
	for _, j := range ArmJoints() {
		if _, ok := cfg.InitialJointPositions[j]; ok {
			joints = append(joints, j)
		}
	}
	if len(joints) != len(cfg.InitialJointPositions) {
		return nil, fmt.Errorf("initial joint positions contain unknown joint names")
	}

	limits, err := limb.Limits(ctx)
	if err != nil {
		return nil, fmt.Errorf("read joint limits: %w", err)
	}

	return &Robot{
		limb:     limb,
		gripper:  gripper,
		validity: validity,
		joints:   joints,
		initial:  cfg.InitialJointPositions,
		group:    cfg.PlanningGroup,
		mode:     cfg.Mode,
		withGr:   cfg.WithGripper,
		limits:   limits,
	}, nil
}

// Joints returns the controlled joints in command order.
func (r *Robot) Joints() []JointName {
	out := make([]JointName, len(r.joints))
	copy(out, r.joints)
	return out
}

// Mode returns the control mode fixed at construction.
func (r *Robot) Mode() ControlMode {
	return r.mode
}

// Reset moves the arm to its start configuration and opens the gripper.
// If the middleware has shut down this is a no-op, not an error.
func (r *Robot) Reset(ctx context.Context) error {
	if r.limb.Closed() {
		return nil
	}
	if err := r.limb.MoveToJointPositions(ctx, r.initial, resetTimeout); err != nil {
		return fmt.Errorf("move to start position: %w", err)
	}
	if err := r.gripper.Open(ctx); err != nil {
		return fmt.Errorf("open gripper: %w", err)
	}
	return nil
}

// Observation reads the current proprioceptive state and returns it as a
// fresh vector: endpoint position (3), orientation (4), linear velocity
// (3), angular velocity (3), force (3), torque (3), then joint angles,
// velocities and efforts for the controlled joints. Consumers depend on
// this order positionally.
func (r *Robot) Observation(ctx context.Context) ([]float64, error) {
	pose, err := r.limb.EndpointPose(ctx)
	if err != nil {
		return nil, fmt.Errorf("read endpoint pose: %w", err)
	}
	vel, err := r.limb.EndpointVelocity(ctx)
	if err != nil {
		return nil, fmt.Errorf("read endpoint velocity: %w", err)
	}
	eff, err := r.limb.EndpointEffort(ctx)
	if err != nil {
		return nil, fmt.Errorf("read endpoint effort: %w", err)
	}
	angles, err := r.limb.JointAngles(ctx)
	if err != nil {
		return nil, fmt.Errorf("read joint angles: %w", err)
	}
	velocities, err := r.limb.JointVelocities(ctx)
	if err != nil {
		return nil, fmt.Errorf("read joint velocities: %w", err)
	}
	efforts, err := r.limb.JointEfforts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read joint efforts: %w", err)
	}

	obs := make([]float64, 0, 19+3*len(r.joints))
	obs = append(obs, pose.Position[:]...)
	obs = append(obs, pose.Orientation[:]...)
	obs = append(obs, vel.Linear[:]...)
	obs = append(obs, vel.Angular[:]...)
	obs = append(obs, eff.Force[:]...)
	obs = append(obs, eff.Torque[:]...)
	for _, j := range r.joints {
		obs = append(obs, angles[j])
	}
	for _, j := range r.joints {
		obs = append(obs, velocities[j])
	}
	for _, j := range r.joints {
		obs = append(obs, efforts[j])
	}
	return obs, nil
}

// SendCommand clips the action vector to the action space, maps it onto
// the controlled joints in order, and dispatches by control mode.
func (r *Robot) SendCommand(ctx context.Context, commands []float64) error {
	space, err := r.ActionSpace()
	if err != nil {
		return err
	}
	if len(commands) != space.Dim() {
		return fmt.Errorf("command has %d elements, want %d", len(commands), space.Dim())
	}
	clipped := space.Clip(commands)

	jointCommands := make(map[JointName]float64, len(r.joints))
	for i, j := range r.joints {
		jointCommands[j] = clipped[i]
	}

	switch r.mode {
	case Position:
		err = r.stepJointPositions(ctx, jointCommands)
	case Velocity:
		err = r.limb.SetJointVelocities(ctx, jointCommands)
	case Effort:
		err = r.limb.SetJointTorques(ctx, jointCommands)
	}
	if err != nil {
		return fmt.Errorf("%s command: %w", r.mode, err)
	}

	if r.withGr {
		if err := r.gripper.SetPosition(ctx, clipped[len(r.joints)]); err != nil {
			return fmt.Errorf("gripper command: %w", err)
		}
	}
	return nil
}

// stepJointPositions converts incremental deltas to absolute targets,
// clips the targets to the factory position limits and commands them if
// the planning scene approves the resulting configuration. An
// unapproved target is skipped silently.
func (r *Robot) stepJointPositions(ctx context.Context, deltas map[JointName]float64) error {
	current, err := r.limb.JointAngles(ctx)
	if err != nil {
		return fmt.Errorf("read joint angles: %w", err)
	}

	targets := make(map[JointName]float64, len(deltas))
	for j, d := range deltas {
		i := jointIndex(j)
		t := current[j] + d*positionDamping
		if t < jointPositionLow[i] {
			t = jointPositionLow[i]
		}
		if t > jointPositionHigh[i] {
			t = jointPositionHigh[i]
		}
		targets[j] = t
	}

	safe, err := r.SafetyPredict(ctx, targets)
	if err != nil {
		return err
	}
	if !safe {
		return nil
	}
	return r.limb.SetJointPositions(ctx, targets)
}

// ActionSpace returns the per-mode command bounds: ±0.02 rad deltas for
// position control, the startup velocity limits scaled by 0.1 for
// velocity control, the startup effort limits for effort control. When
// the gripper slot is enabled a final [0, 100] element is appended.
// An unknown control mode is reported here, on first use.
func (r *Robot) ActionSpace() (Box, error) {
	n := len(r.joints)
	low := make([]float64, 0, n+1)
	high := make([]float64, 0, n+1)

	switch r.mode {
	case Position:
		for range r.joints {
			low = append(low, -positionDelta)
			high = append(high, positionDelta)
		}
	case Velocity:
		for _, j := range r.joints {
			v := r.limits.Velocity[j] * velocityDamping
			low = append(low, -v)
			high = append(high, v)
		}
	case Effort:
		for _, j := range r.joints {
			e := r.limits.Effort[j]
			low = append(low, -e)
			high = append(high, e)
		}
	default:
		return Box{}, fmt.Errorf("control mode %s is not known", r.mode)
	}

	if r.withGr {
		low = append(low, 0)
		high = append(high, gripperMax)
	}
	return NewBox(low, high), nil
}

// ObservationSpace returns an unbounded box sized to the observation.
func (r *Robot) ObservationSpace() Box {
	return UnboundedBox(19 + 3*len(r.joints))
}

// JointPositionSpace returns the factory position limits for the
// controlled joints.
func (r *Robot) JointPositionSpace() Box {
	low := make([]float64, 0, len(r.joints))
	high := make([]float64, 0, len(r.joints))
	for _, j := range r.joints {
		i := jointIndex(j)
		low = append(low, jointPositionLow[i])
		high = append(high, jointPositionHigh[i])
	}
	return NewBox(low, high)
}

// SafetyCheck asks the planning scene whether the current joint
// configuration is valid.
func (r *Robot) SafetyCheck(ctx context.Context) (bool, error) {
	angles, err := r.limb.JointAngles(ctx)
	if err != nil {
		return false, fmt.Errorf("read joint angles: %w", err)
	}
	return r.SafetyPredict(ctx, angles)
}

// SafetyPredict asks the planning scene whether a hypothetical joint
// configuration would be valid. The verdict is returned unmodified.
func (r *Robot) SafetyPredict(ctx context.Context, angles map[JointName]float64) (bool, error) {
	names := make([]JointName, 0, len(angles))
	positions := make([]float64, 0, len(angles))
	for _, j := range ArmJoints() {
		if p, ok := angles[j]; ok {
			names = append(names, j)
			positions = append(positions, p)
		}
	}
	valid, err := r.validity.CheckState(ctx, names, positions, r.group)
	if err != nil {
		return false, fmt.Errorf("state validity: %w", err)
	}
	return valid, nil
}

// JointAngles returns the current joint angles for the controlled joints.
func (r *Robot) JointAngles(ctx context.Context) (map[JointName]float64, error) {
	return r.limb.JointAngles(ctx)
}

// GripperPose returns the current end-effector pose.
func (r *Robot) GripperPose(ctx context.Context) (Pose, error) {
	return r.limb.EndpointPose(ctx)
}

// GripperPosition returns the current end-effector position.
func (r *Robot) GripperPosition(ctx context.Context) ([3]float64, error) {
	pose, err := r.limb.EndpointPose(ctx)
	if err != nil {
		return [3]float64{}, err
	}
	return pose.Position, nil
}

// Enabled reports whether the robot is enabled.
func (r *Robot) Enabled(ctx context.Context) (bool, error) {
	return r.limb.Enabled(ctx)
}

// MoveGripperTo moves the end effector to a cartesian position, keeping
// the current orientation, by resolving the pose through the
// middleware's inverse kinematics.
func (r *Robot) MoveGripperTo(ctx context.Context, position [3]float64) error {
	current, err := r.limb.EndpointPose(ctx)
	if err != nil {
		return fmt.Errorf("read endpoint pose: %w", err)
	}
	target := Pose{Position: position, Orientation: current.Orientation}
	angles, err := r.limb.InverseKinematics(ctx, target)
	if err != nil {
		return fmt.Errorf("inverse kinematics: %w", err)
	}
	if err := r.limb.MoveToJointPositions(ctx, angles, moveTimeout); err != nil {
		return fmt.Errorf("move to ik solution: %w", err)
	}
	return nil
}
