package miniarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// ErrUnsupported is returned for capabilities the servo bus does not
// have: velocity and torque command modes, inverse kinematics.
var ErrUnsupported = errors.New("not supported on this arm")

const (
	movePollInterval = 20 * time.Millisecond
	moveTolerance    = 0.02 // rad, hobby servos are coarse
)

// Config describes the serial arm.
type Config struct {
	Port        string
	Calibration Calibration
	// GripperServo maps the gripper servo's raw range to aperture
	// 0 (RawMin, closed) .. 100 (RawMax, open). Optional.
	GripperServo *ServoCalibration
	// Limits is reported through the Limb interface in place of the
	// robot's startup message. Optional; zero limits mean velocity and
	// effort action spaces collapse to zero width.
	Limits sawyer.JointLimits
}

// Arm is a serial servo arm implementing sawyer.Limb.
type Arm struct {
	bus     *feetech.Bus
	group   *feetech.ServoGroup
	gripper *feetech.Servo
	cfg     Config

	mu      sync.Mutex
	lastPos map[sawyer.JointName]float64
	lastAt  time.Time
	closed  bool
}

// NewArm opens the serial bus and enables torque on all servos.
func NewArm(ctx context.Context, cfg Config) (*Arm, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, cfg.Calibration.ServoIDs()...)
	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servos: %w", err)
	}

	a := &Arm{bus: bus, group: group, cfg: cfg}
	if cfg.GripperServo != nil {
		found, err := bus.Scan(ctx, cfg.GripperServo.ID, cfg.GripperServo.ID)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("scan gripper servo: %w", err)
		}
		if len(found) == 0 {
			bus.Close()
			return nil, fmt.Errorf("gripper servo %d not found", cfg.GripperServo.ID)
		}
		a.gripper = feetech.NewServo(bus, found[0].ID, found[0].Model)
	}
	return a, nil
}

// Close disables the bus connection.
func (a *Arm) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.bus.Close()
}

// Closed reports whether the arm connection has been closed.
func (a *Arm) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Arm) readAngles(ctx context.Context) (map[sawyer.JointName]float64, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[sawyer.JointName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := a.cfg.Calibration.ByID(id)
		if !ok {
			continue
		}
		angles[name] = cal.ToRadians(raw)
	}
	return angles, nil
}

// JointAngles reads current joint angles from all servos.
func (a *Arm) JointAngles(ctx context.Context) (map[sawyer.JointName]float64, error) {
	angles, err := a.readAngles(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.lastPos = angles
	a.lastAt = time.Now()
	a.mu.Unlock()
	return angles, nil
}

// JointVelocities estimates velocities by finite difference against the
// previous position read. The first read reports zero.
func (a *Arm) JointVelocities(ctx context.Context) (map[sawyer.JointName]float64, error) {
	a.mu.Lock()
	prev, prevAt := a.lastPos, a.lastAt
	a.mu.Unlock()

	angles, err := a.JointAngles(ctx)
	if err != nil {
		return nil, err
	}

	velocities := make(map[sawyer.JointName]float64, len(angles))
	dt := time.Since(prevAt).Seconds()
	for name, pos := range angles {
		if prev == nil || dt <= 0 {
			velocities[name] = 0
			continue
		}
		velocities[name] = (pos - prev[name]) / dt
	}
	return velocities, nil
}

// JointEfforts reports zero for every joint; the bus has no load
// feedback in this configuration.
func (a *Arm) JointEfforts(ctx context.Context) (map[sawyer.JointName]float64, error) {
	angles, err := a.readAngles(ctx)
	if err != nil {
		return nil, err
	}
	efforts := make(map[sawyer.JointName]float64, len(angles))
	for name := range angles {
		efforts[name] = 0
	}
	return efforts, nil
}

// EndpointPose reports a zero pose; the arm has no forward kinematics.
func (a *Arm) EndpointPose(context.Context) (sawyer.Pose, error) {
	return sawyer.Pose{Orientation: [4]float64{0, 0, 0, 1}}, nil
}

// EndpointVelocity reports a zero twist.
func (a *Arm) EndpointVelocity(context.Context) (sawyer.Twist, error) {
	return sawyer.Twist{}, nil
}

// EndpointEffort reports a zero wrench.
func (a *Arm) EndpointEffort(context.Context) (sawyer.Wrench, error) {
	return sawyer.Wrench{}, nil
}

// SetJointPositions writes target angles to all servos.
func (a *Arm) SetJointPositions(ctx context.Context, targets map[sawyer.JointName]float64) error {
	rawPositions := make(feetech.PositionMap, len(targets))
	for name, rad := range targets {
		cal, ok := a.cfg.Calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.FromRadians(rad)
	}
	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// SetJointVelocities is not available on this arm.
func (a *Arm) SetJointVelocities(context.Context, map[sawyer.JointName]float64) error {
	return fmt.Errorf("velocity control: %w", ErrUnsupported)
}

// SetJointTorques is not available on this arm.
func (a *Arm) SetJointTorques(context.Context, map[sawyer.JointName]float64) error {
	return fmt.Errorf("torque control: %w", ErrUnsupported)
}

// MoveToJointPositions commands the targets and polls until every servo
// is within tolerance or the timeout expires. A timeout is not an error.
func (a *Arm) MoveToJointPositions(ctx context.Context, targets map[sawyer.JointName]float64, timeout time.Duration) error {
	if err := a.SetJointPositions(ctx, targets); err != nil {
		return err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(movePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
			angles, err := a.JointAngles(ctx)
			if err != nil {
				return err
			}
			done := true
			for name, want := range targets {
				if d := angles[name] - want; d < -moveTolerance || d > moveTolerance {
					done = false
					break
				}
			}
			if done {
				return nil
			}
		}
	}
}

// InverseKinematics is not available on this arm.
func (a *Arm) InverseKinematics(context.Context, sawyer.Pose) (map[sawyer.JointName]float64, error) {
	return nil, fmt.Errorf("inverse kinematics: %w", ErrUnsupported)
}

// Limits returns the configured static limits.
func (a *Arm) Limits(context.Context) (sawyer.JointLimits, error) {
	return a.cfg.Limits, nil
}

// Enabled reports true while the bus is open.
func (a *Arm) Enabled(context.Context) (bool, error) {
	return !a.Closed(), nil
}

// Gripper returns the gripper servo surface, or an error if the arm has
// no gripper servo configured.
func (a *Arm) Gripper() (*GripperServo, error) {
	if a.gripper == nil {
		return nil, fmt.Errorf("no gripper servo configured")
	}
	return &GripperServo{servo: a.gripper, cal: *a.cfg.GripperServo}, nil
}

// GripperServo drives the gripper servo as a 0-100 aperture.
type GripperServo struct {
	servo *feetech.Servo
	cal   ServoCalibration
}

// Open fully opens the gripper.
func (g *GripperServo) Open(ctx context.Context) error {
	return g.SetPosition(ctx, 100)
}

// SetPosition commands the aperture, 0 (closed) to 100 (open).
func (g *GripperServo) SetPosition(ctx context.Context, position float64) error {
	if position < 0 {
		position = 0
	}
	if position > 100 {
		position = 100
	}
	raw := g.cal.RawMin + int(position/100*float64(g.cal.RawMax-g.cal.RawMin)+0.5)
	if err := g.servo.SetPosition(ctx, raw); err != nil {
		return fmt.Errorf("write gripper position: %w", err)
	}
	return nil
}

var (
	_ sawyer.Limb    = (*Arm)(nil)
	_ sawyer.Gripper = (*GripperServo)(nil)
)
