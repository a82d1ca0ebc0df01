package sawyer

import (
	"context"
	"math"
	"testing"
	"time"
)

// mockLimb is a hand-rolled Limb for testing the adapter without
// hardware. Reads come from the fields; writes are recorded.
type mockLimb struct {
	angles     map[JointName]float64
	velocities map[JointName]float64
	efforts    map[JointName]float64
	pose       Pose
	twist      Twist
	wrench     Wrench
	limits     JointLimits
	closed     bool

	setPositions  map[JointName]float64
	setVelocities map[JointName]float64
	setTorques    map[JointName]float64
	movedTo       map[JointName]float64
	moveTimeout   time.Duration

	ikSolution map[JointName]float64
	ikPose     Pose
	ops        []string
}

func (m *mockLimb) JointAngles(context.Context) (map[JointName]float64, error) {
	return m.angles, nil
}

func (m *mockLimb) JointVelocities(context.Context) (map[JointName]float64, error) {
	return m.velocities, nil
}

func (m *mockLimb) JointEfforts(context.Context) (map[JointName]float64, error) {
	return m.efforts, nil
}

func (m *mockLimb) EndpointPose(context.Context) (Pose, error) {
	m.ops = append(m.ops, "pose")
	return m.pose, nil
}

func (m *mockLimb) EndpointVelocity(context.Context) (Twist, error) { return m.twist, nil }
func (m *mockLimb) EndpointEffort(context.Context) (Wrench, error)  { return m.wrench, nil }

func (m *mockLimb) SetJointPositions(_ context.Context, t map[JointName]float64) error {
	m.setPositions = t
	return nil
}

func (m *mockLimb) SetJointVelocities(_ context.Context, v map[JointName]float64) error {
	m.setVelocities = v
	return nil
}

func (m *mockLimb) SetJointTorques(_ context.Context, t map[JointName]float64) error {
	m.setTorques = t
	return nil
}

func (m *mockLimb) MoveToJointPositions(_ context.Context, t map[JointName]float64, timeout time.Duration) error {
	m.ops = append(m.ops, "move")
	m.movedTo = t
	m.moveTimeout = timeout
	return nil
}

func (m *mockLimb) InverseKinematics(_ context.Context, pose Pose) (map[JointName]float64, error) {
	m.ops = append(m.ops, "ik")
	m.ikPose = pose
	if m.ikSolution != nil {
		return m.ikSolution, nil
	}
	return m.angles, nil
}

func (m *mockLimb) Limits(context.Context) (JointLimits, error) { return m.limits, nil }
func (m *mockLimb) Enabled(context.Context) (bool, error)       { return true, nil }
func (m *mockLimb) Closed() bool                                { return m.closed }

type mockGripper struct {
	opened   bool
	position float64
	set      bool
}

func (g *mockGripper) Open(context.Context) error { g.opened = true; return nil }
func (g *mockGripper) SetPosition(_ context.Context, p float64) error {
	g.position = p
	g.set = true
	return nil
}

type mockValidity struct {
	verdict bool

	names     []JointName
	positions []float64
	group     string
	calls     int
}

func (v *mockValidity) CheckState(_ context.Context, names []JointName, positions []float64, group string) (bool, error) {
	v.names = names
	v.positions = positions
	v.group = group
	v.calls++
	return v.verdict, nil
}

func threeJoints() map[JointName]float64 {
	return map[JointName]float64{
		RightJ0: 0.1,
		RightJ1: -0.2,
		RightJ2: 0.3,
	}
}

func testRobot(t *testing.T, mode ControlMode, withGripper bool) (*Robot, *mockLimb, *mockGripper, *mockValidity) {
	t.Helper()
	limb := &mockLimb{
		angles:     threeJoints(),
		velocities: map[JointName]float64{RightJ0: 1, RightJ1: 2, RightJ2: 3},
		efforts:    map[JointName]float64{RightJ0: 4, RightJ1: 5, RightJ2: 6},
		pose:       Pose{Position: [3]float64{0.5, 0.1, 0.3}, Orientation: [4]float64{0, 0, 0, 1}},
		limits: JointLimits{
			Velocity: map[JointName]float64{RightJ0: 1.74, RightJ1: 1.33, RightJ2: 1.96},
			Effort:   map[JointName]float64{RightJ0: 80, RightJ1: 80, RightJ2: 40},
		},
	}
	gripper := &mockGripper{}
	validity := &mockValidity{verdict: true}
	robot, err := NewRobot(context.Background(), limb, gripper, validity, RobotConfig{
		InitialJointPositions: threeJoints(),
		PlanningGroup:         "right_arm",
		Mode:                  mode,
		WithGripper:           withGripper,
	})
	if err != nil {
		t.Fatalf("NewRobot: %v", err)
	}
	return robot, limb, gripper, validity
}

func TestActionSpaceBounds(t *testing.T) {
	tests := []struct {
		name string
		mode ControlMode
		low  []float64
		high []float64
	}{
		{
			name: "position",
			mode: Position,
			low:  []float64{-0.02, -0.02, -0.02},
			high: []float64{0.02, 0.02, 0.02},
		},
		{
			name: "velocity",
			mode: Velocity,
			low:  []float64{-0.174, -0.133, -0.196},
			high: []float64{0.174, 0.133, 0.196},
		},
		{
			name: "effort",
			mode: Effort,
			low:  []float64{-80, -80, -40},
			high: []float64{80, 80, 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot, _, _, _ := testRobot(t, tt.mode, false)
			space, err := robot.ActionSpace()
			if err != nil {
				t.Fatalf("ActionSpace: %v", err)
			}
			if space.Dim() != 3 {
				t.Fatalf("Dim = %d, want 3", space.Dim())
			}
			for i := range tt.low {
				if math.Abs(space.Low[i]-tt.low[i]) > 1e-9 {
					t.Errorf("Low[%d] = %v, want %v", i, space.Low[i], tt.low[i])
				}
				if math.Abs(space.High[i]-tt.high[i]) > 1e-9 {
					t.Errorf("High[%d] = %v, want %v", i, space.High[i], tt.high[i])
				}
			}
		})
	}
}

func TestActionSpaceGripperSlot(t *testing.T) {
	robot, _, _, _ := testRobot(t, Position, true)
	space, err := robot.ActionSpace()
	if err != nil {
		t.Fatalf("ActionSpace: %v", err)
	}
	if space.Dim() != 4 {
		t.Fatalf("Dim = %d, want 4", space.Dim())
	}
	if space.Low[3] != 0 || space.High[3] != 100 {
		t.Errorf("gripper slot bounds = [%v, %v], want [0, 100]", space.Low[3], space.High[3])
	}
}

func TestActionSpaceUnknownMode(t *testing.T) {
	// An unconfigured mode must not fail construction; the error
	// surfaces on first use.
	robot, _, _, _ := testRobot(t, ControlMode(0), false)
	if _, err := robot.ActionSpace(); err == nil {
		t.Fatal("ActionSpace with unknown mode should fail")
	}
	if err := robot.SendCommand(context.Background(), []float64{0, 0, 0}); err == nil {
		t.Fatal("SendCommand with unknown mode should fail")
	}
}

func TestObservationOrderAndLength(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Position, false)
	limb.pose = Pose{Position: [3]float64{1, 2, 3}, Orientation: [4]float64{4, 5, 6, 7}}
	limb.twist = Twist{Linear: [3]float64{8, 9, 10}, Angular: [3]float64{11, 12, 13}}
	limb.wrench = Wrench{Force: [3]float64{14, 15, 16}, Torque: [3]float64{17, 18, 19}}

	obs, err := robot.Observation(context.Background())
	if err != nil {
		t.Fatalf("Observation: %v", err)
	}

	want := []float64{
		1, 2, 3, // position
		4, 5, 6, 7, // orientation
		8, 9, 10, // linear velocity
		11, 12, 13, // angular velocity
		14, 15, 16, // force
		17, 18, 19, // torque
		0.1, -0.2, 0.3, // joint angles, j0..j2
		1, 2, 3, // joint velocities
		4, 5, 6, // joint efforts
	}
	if len(obs) != 19+3*3 {
		t.Fatalf("observation length = %d, want %d", len(obs), 19+3*3)
	}
	for i := range want {
		if math.Abs(obs[i]-want[i]) > 1e-9 {
			t.Errorf("obs[%d] = %v, want %v", i, obs[i], want[i])
		}
	}
	if robot.ObservationSpace().Dim() != len(obs) {
		t.Errorf("ObservationSpace dim = %d, want %d", robot.ObservationSpace().Dim(), len(obs))
	}
}

func TestObservationIsFresh(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Position, false)

	first, err := robot.Observation(context.Background())
	if err != nil {
		t.Fatalf("Observation: %v", err)
	}
	limb.angles = map[JointName]float64{RightJ0: 0.9, RightJ1: 0.9, RightJ2: 0.9}
	second, err := robot.Observation(context.Background())
	if err != nil {
		t.Fatalf("Observation: %v", err)
	}
	if first[19] == second[19] {
		t.Error("second observation did not pick up the new joint angles")
	}
}

func TestSendCommandPosition(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Position, false)

	// 0.5 clips to 0.02, then the 0.1 damping applies.
	if err := robot.SendCommand(context.Background(), []float64{0.5, 0.01, -0.5}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if limb.setPositions == nil {
		t.Fatal("no position command issued")
	}

	want := map[JointName]float64{
		RightJ0: 0.1 + 0.02*0.1,
		RightJ1: -0.2 + 0.01*0.1,
		RightJ2: 0.3 - 0.02*0.1,
	}
	for j, w := range want {
		if got := limb.setPositions[j]; math.Abs(got-w) > 1e-9 {
			t.Errorf("target[%s] = %v, want %v", j, got, w)
		}
	}
}

func TestSendCommandPositionClampsToJointBounds(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Position, false)
	limb.angles = map[JointName]float64{
		RightJ0: jointPositionHigh[0] - 0.0001,
		RightJ1: 0,
		RightJ2: 0,
	}

	if err := robot.SendCommand(context.Background(), []float64{0.02, 0, 0}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if got := limb.setPositions[RightJ0]; got > jointPositionHigh[0] {
		t.Errorf("target exceeds joint bound: %v > %v", got, jointPositionHigh[0])
	}
}

func TestSendCommandPositionBlockedByValidity(t *testing.T) {
	robot, limb, _, validity := testRobot(t, Position, false)
	validity.verdict = false

	if err := robot.SendCommand(context.Background(), []float64{0.01, 0.01, 0.01}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if limb.setPositions != nil {
		t.Error("position command issued despite invalid predicted state")
	}
}

func TestSendCommandVelocityPassThrough(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Velocity, false)

	// 9 clips to the scaled limit; the rest pass through untouched.
	if err := robot.SendCommand(context.Background(), []float64{9, 0.1, -0.05}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	want := map[JointName]float64{RightJ0: 0.174, RightJ1: 0.1, RightJ2: -0.05}
	for j, w := range want {
		if got := limb.setVelocities[j]; math.Abs(got-w) > 1e-9 {
			t.Errorf("velocity[%s] = %v, want %v", j, got, w)
		}
	}
	if limb.setPositions != nil || limb.setTorques != nil {
		t.Error("velocity mode dispatched to the wrong command path")
	}
}

func TestSendCommandEffortPassThrough(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Effort, false)

	if err := robot.SendCommand(context.Background(), []float64{-100, 10, 39.5}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	want := map[JointName]float64{RightJ0: -80, RightJ1: 10, RightJ2: 39.5}
	for j, w := range want {
		if got := limb.setTorques[j]; math.Abs(got-w) > 1e-9 {
			t.Errorf("torque[%s] = %v, want %v", j, got, w)
		}
	}
}

func TestSendCommandGripper(t *testing.T) {
	robot, _, gripper, _ := testRobot(t, Velocity, true)

	if err := robot.SendCommand(context.Background(), []float64{0, 0, 0, 250}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if !gripper.set {
		t.Fatal("gripper slot was not dispatched")
	}
	if gripper.position != 100 {
		t.Errorf("gripper position = %v, want clipped 100", gripper.position)
	}
}

func TestSendCommandLengthMismatch(t *testing.T) {
	robot, _, _, _ := testRobot(t, Velocity, false)
	if err := robot.SendCommand(context.Background(), []float64{1, 2}); err == nil {
		t.Fatal("short command vector should fail")
	}
}

func TestSafetyCheckDelegation(t *testing.T) {
	for _, verdict := range []bool{true, false} {
		robot, _, _, validity := testRobot(t, Position, false)
		validity.verdict = verdict

		got, err := robot.SafetyCheck(context.Background())
		if err != nil {
			t.Fatalf("SafetyCheck: %v", err)
		}
		if got != verdict {
			t.Errorf("SafetyCheck = %v, want the service verdict %v", got, verdict)
		}
		if validity.group != "right_arm" {
			t.Errorf("planning group = %q, want right_arm", validity.group)
		}
		if len(validity.names) != 3 || len(validity.positions) != 3 {
			t.Errorf("request carried %d names / %d positions, want 3 / 3",
				len(validity.names), len(validity.positions))
		}
	}
}

func TestSafetyPredictDelegation(t *testing.T) {
	robot, _, _, validity := testRobot(t, Position, false)
	validity.verdict = false

	hypothetical := map[JointName]float64{RightJ0: 1.5, RightJ1: 0, RightJ2: -1.5}
	got, err := robot.SafetyPredict(context.Background(), hypothetical)
	if err != nil {
		t.Fatalf("SafetyPredict: %v", err)
	}
	if got {
		t.Error("SafetyPredict = true, want the service verdict false")
	}
	// Names and positions must line up in the fixed joint order.
	for i, n := range validity.names {
		if validity.positions[i] != hypothetical[n] {
			t.Errorf("position[%d] = %v does not match joint %s", i, validity.positions[i], n)
		}
	}
}

func TestResetMovesToStartAndOpensGripper(t *testing.T) {
	robot, limb, gripper, _ := testRobot(t, Position, false)

	if err := robot.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if limb.movedTo == nil {
		t.Fatal("Reset did not command a move")
	}
	for j, w := range threeJoints() {
		if limb.movedTo[j] != w {
			t.Errorf("start target[%s] = %v, want %v", j, limb.movedTo[j], w)
		}
	}
	if limb.moveTimeout != resetTimeout {
		t.Errorf("move timeout = %v, want %v", limb.moveTimeout, resetTimeout)
	}
	if !gripper.opened {
		t.Error("Reset did not open the gripper")
	}
}

func TestResetNoOpWhenClosed(t *testing.T) {
	robot, limb, gripper, _ := testRobot(t, Position, false)
	limb.closed = true

	if err := robot.Reset(context.Background()); err != nil {
		t.Fatalf("Reset during shutdown should be a silent no-op, got %v", err)
	}
	if limb.movedTo != nil || gripper.opened {
		t.Error("Reset acted on hardware during shutdown")
	}
}

func TestJointPositionSpace(t *testing.T) {
	robot, _, _, _ := testRobot(t, Position, false)
	space := robot.JointPositionSpace()
	if space.Dim() != 3 {
		t.Fatalf("Dim = %d, want 3", space.Dim())
	}
	if space.Low[0] != jointPositionLow[0] || space.High[1] != jointPositionHigh[1] {
		t.Errorf("bounds do not match the factory limits: %v %v", space.Low, space.High)
	}
}

func TestMoveGripperTo(t *testing.T) {
	robot, limb, _, _ := testRobot(t, Position, false)
	limb.ikSolution = map[JointName]float64{RightJ0: 0.4, RightJ1: -0.6, RightJ2: 0.8}

	target := [3]float64{0.7, 0.05, 0.2}
	if err := robot.MoveGripperTo(context.Background(), target); err != nil {
		t.Fatalf("MoveGripperTo: %v", err)
	}

	want := []string{"pose", "ik", "move"}
	if len(limb.ops) != len(want) {
		t.Fatalf("call sequence = %v, want %v", limb.ops, want)
	}
	for i, op := range want {
		if limb.ops[i] != op {
			t.Fatalf("call sequence = %v, want %v", limb.ops, want)
		}
	}

	if limb.ikPose.Position != target {
		t.Errorf("ik position = %v, want %v", limb.ikPose.Position, target)
	}
	if limb.ikPose.Orientation != limb.pose.Orientation {
		t.Errorf("ik orientation = %v, want current %v", limb.ikPose.Orientation, limb.pose.Orientation)
	}
	for j, w := range limb.ikSolution {
		if limb.movedTo[j] != w {
			t.Errorf("move target[%s] = %v, want ik solution %v", j, limb.movedTo[j], w)
		}
	}
	if limb.moveTimeout != moveTimeout {
		t.Errorf("move timeout = %v, want %v", limb.moveTimeout, moveTimeout)
	}
}
