package intera

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

const (
	topicJointStates   = "robot/limb/%s/joint_states"
	topicEndpointState = "robot/limb/%s/endpoint_state"
	topicJointCommand  = "robot/limb/%s/joint_command"
	topicIKRequest     = "robot/limb/%s/ik_request"
	topicIKResponse    = "robot/limb/%s/ik_response"
	topicJointLimits   = "robot/joint_limits"
	topicAssemblyState = "robot/state"
	topicGripper       = "robot/end_effector/gripper/command"

	defaultLimitsTimeout = 10 * time.Second
	movePollInterval     = 20 * time.Millisecond
	moveTolerance        = 0.0087 // rad, about half a degree
	ikTimeout            = 5 * time.Second
	defaultTipName       = "right_hand"
)

// Config holds connection settings for the middleware bridge.
type Config struct {
	Broker   string
	ClientID string
	// Side selects the arm, default "right".
	Side string
	// LimitsTimeout bounds the one-time wait for the retained
	// joint-limits message at connect.
	LimitsTimeout time.Duration
}

// Client is a connection to the middleware bridge. It holds the latest
// retained state pushed by the bridge and implements sawyer.Limb on top
// of it. Use Gripper() for the sawyer.Gripper side.
type Client struct {
	mqtt   mqtt.Client
	logger *slog.Logger
	side   string

	mu       sync.RWMutex
	joint    JointState
	endpoint EndpointState
	assembly AssemblyState
	limits   sawyer.JointLimits

	limitsOnce  sync.Once
	limitsReady chan struct{}

	ikMu      sync.Mutex
	ikWaiters map[string]chan IKResponse
	ikSeq     atomic.Uint64

	closed atomic.Bool
}

// Connect dials the broker, subscribes to the state topics and blocks
// until the retained joint-limits message arrives.
func Connect(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Side == "" {
		cfg.Side = "right"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sawyerctl"
	}
	if cfg.LimitsTimeout <= 0 {
		cfg.LimitsTimeout = defaultLimitsTimeout
	}

	c := &Client{
		logger:      logger.With("component", "intera"),
		side:        cfg.Side,
		limitsReady: make(chan struct{}),
		ikWaiters:   make(map[string]chan IKResponse),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.closed.Store(true)
			c.logger.Warn("connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			c.closed.Store(false)
		})

	c.mqtt = mqtt.NewClient(opts)
	if token := c.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}

	subs := map[string]mqtt.MessageHandler{
		fmt.Sprintf(topicJointStates, c.side):   c.onJointState,
		fmt.Sprintf(topicEndpointState, c.side): c.onEndpointState,
		fmt.Sprintf(topicIKResponse, c.side):    c.onIKResponse,
		topicJointLimits:                        c.onJointLimits,
		topicAssemblyState:                      c.onAssemblyState,
	}
	for topic, handler := range subs {
		if token := c.mqtt.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			c.mqtt.Disconnect(250)
			return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}

	// The joint-limits message is retained by the bridge, so this
	// resolves immediately against a live robot.
	select {
	case <-c.limitsReady:
	case <-time.After(cfg.LimitsTimeout):
		c.mqtt.Disconnect(250)
		return nil, fmt.Errorf("joint limits not received within %s", cfg.LimitsTimeout)
	}

	c.logger.Info("connected", "broker", cfg.Broker, "side", c.side)
	return c, nil
}

// Close disconnects from the broker. After Close the client reports
// Closed and Reset on the adapter becomes a no-op.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.mqtt.Disconnect(250)
	return nil
}

// Closed reports whether the middleware connection has shut down.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

func (c *Client) onJointState(_ mqtt.Client, msg mqtt.Message) {
	var js JointState
	if err := json.Unmarshal(msg.Payload(), &js); err != nil {
		c.logger.Warn("bad joint state payload", "error", err)
		return
	}
	c.mu.Lock()
	c.joint = js
	c.mu.Unlock()
}

func (c *Client) onEndpointState(_ mqtt.Client, msg mqtt.Message) {
	var es EndpointState
	if err := json.Unmarshal(msg.Payload(), &es); err != nil {
		c.logger.Warn("bad endpoint state payload", "error", err)
		return
	}
	c.mu.Lock()
	c.endpoint = es
	c.mu.Unlock()
}

func (c *Client) onAssemblyState(_ mqtt.Client, msg mqtt.Message) {
	var as AssemblyState
	if err := json.Unmarshal(msg.Payload(), &as); err != nil {
		c.logger.Warn("bad assembly state payload", "error", err)
		return
	}
	c.mu.Lock()
	c.assembly = as
	c.mu.Unlock()
}

func (c *Client) onJointLimits(_ mqtt.Client, msg mqtt.Message) {
	var jl JointLimitsMsg
	if err := json.Unmarshal(msg.Payload(), &jl); err != nil {
		c.logger.Warn("bad joint limits payload", "error", err)
		return
	}
	limits := sawyer.JointLimits{
		Velocity: make(map[sawyer.JointName]float64, len(jl.JointNames)),
		Effort:   make(map[sawyer.JointName]float64, len(jl.JointNames)),
	}
	for i, name := range jl.JointNames {
		j := sawyer.JointName(name)
		if i < len(jl.Velocity) {
			limits.Velocity[j] = jl.Velocity[i]
		}
		if i < len(jl.Effort) {
			limits.Effort[j] = jl.Effort[i]
		}
	}
	c.mu.Lock()
	c.limits = limits
	c.mu.Unlock()
	c.limitsOnce.Do(func() { close(c.limitsReady) })
}

func (c *Client) onIKResponse(_ mqtt.Client, msg mqtt.Message) {
	var resp IKResponse
	if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
		c.logger.Warn("bad ik response payload", "error", err)
		return
	}
	c.ikMu.Lock()
	ch, ok := c.ikWaiters[resp.ID]
	if ok {
		delete(c.ikWaiters, resp.ID)
	}
	c.ikMu.Unlock()
	if ok {
		ch <- resp
	}
}

func (c *Client) jointMap(values func(JointState) []float64) map[sawyer.JointName]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vals := values(c.joint)
	out := make(map[sawyer.JointName]float64, len(c.joint.Name))
	for i, name := range c.joint.Name {
		if i < len(vals) {
			out[sawyer.JointName(name)] = vals[i]
		}
	}
	return out
}

// JointAngles returns the latest joint positions pushed by the bridge.
func (c *Client) JointAngles(context.Context) (map[sawyer.JointName]float64, error) {
	return c.jointMap(func(js JointState) []float64 { return js.Position }), nil
}

// JointVelocities returns the latest joint velocities.
func (c *Client) JointVelocities(context.Context) (map[sawyer.JointName]float64, error) {
	return c.jointMap(func(js JointState) []float64 { return js.Velocity }), nil
}

// JointEfforts returns the latest joint efforts.
func (c *Client) JointEfforts(context.Context) (map[sawyer.JointName]float64, error) {
	return c.jointMap(func(js JointState) []float64 { return js.Effort }), nil
}

// EndpointPose returns the latest end-effector pose.
func (c *Client) EndpointPose(context.Context) (sawyer.Pose, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.endpoint.Pose
	return sawyer.Pose{
		Position:    [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		Orientation: [4]float64{p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W},
	}, nil
}

// EndpointVelocity returns the latest end-effector twist.
func (c *Client) EndpointVelocity(context.Context) (sawyer.Twist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tw := c.endpoint.Twist
	return sawyer.Twist{
		Linear:  [3]float64{tw.Linear.X, tw.Linear.Y, tw.Linear.Z},
		Angular: [3]float64{tw.Angular.X, tw.Angular.Y, tw.Angular.Z},
	}, nil
}

// EndpointEffort returns the latest end-effector wrench.
func (c *Client) EndpointEffort(context.Context) (sawyer.Wrench, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w := c.endpoint.Wrench
	return sawyer.Wrench{
		Force:  [3]float64{w.Force.X, w.Force.Y, w.Force.Z},
		Torque: [3]float64{w.Torque.X, w.Torque.Y, w.Torque.Z},
	}, nil
}

func (c *Client) publishJointCommand(cmd JointCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal joint command: %w", err)
	}
	topic := fmt.Sprintf(topicJointCommand, c.side)
	if token := c.mqtt.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish joint command: %w", token.Error())
	}
	return nil
}

func splitJointMap(m map[sawyer.JointName]float64) (names []string, values []float64) {
	for _, j := range sawyer.ArmJoints() {
		if v, ok := m[j]; ok {
			names = append(names, string(j))
			values = append(values, v)
		}
	}
	return names, values
}

// SetJointPositions issues an absolute position command.
func (c *Client) SetJointPositions(_ context.Context, targets map[sawyer.JointName]float64) error {
	names, values := splitJointMap(targets)
	return c.publishJointCommand(JointCommand{Mode: PositionMode, Names: names, Position: values})
}

// SetJointVelocities issues a velocity command.
func (c *Client) SetJointVelocities(_ context.Context, velocities map[sawyer.JointName]float64) error {
	names, values := splitJointMap(velocities)
	return c.publishJointCommand(JointCommand{Mode: VelocityMode, Names: names, Velocity: values})
}

// SetJointTorques issues a torque command.
func (c *Client) SetJointTorques(_ context.Context, torques map[sawyer.JointName]float64) error {
	names, values := splitJointMap(torques)
	return c.publishJointCommand(JointCommand{Mode: TorqueMode, Names: names, Effort: values})
}

// MoveToJointPositions issues a trajectory command and polls joint state
// until every target is reached or the timeout expires. A timeout is not
// an error; the robot stops where the trajectory controller left it.
func (c *Client) MoveToJointPositions(ctx context.Context, targets map[sawyer.JointName]float64, timeout time.Duration) error {
	names, values := splitJointMap(targets)
	if err := c.publishJointCommand(JointCommand{Mode: TrajectoryMode, Names: names, Position: values}); err != nil {
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
			c.logger.Debug("move timed out", "timeout", timeout)
			return nil
		case <-ticker.C:
			angles, _ := c.JointAngles(ctx)
			if reached(angles, targets) {
				return nil
			}
		}
	}
}

func reached(current, targets map[sawyer.JointName]float64) bool {
	for j, want := range targets {
		got, ok := current[j]
		if !ok {
			return false
		}
		d := got - want
		if d < -moveTolerance || d > moveTolerance {
			return false
		}
	}
	return true
}

// InverseKinematics resolves a pose through the middleware IK service.
func (c *Client) InverseKinematics(ctx context.Context, pose sawyer.Pose) (map[sawyer.JointName]float64, error) {
	req := IKRequest{
		ID:      fmt.Sprintf("%s-%d", c.side, c.ikSeq.Add(1)),
		TipName: defaultTipName,
	}
	req.Pose.Position = Point{X: pose.Position[0], Y: pose.Position[1], Z: pose.Position[2]}
	req.Pose.Orientation = Quaternion{
		X: pose.Orientation[0], Y: pose.Orientation[1],
		Z: pose.Orientation[2], W: pose.Orientation[3],
	}

	ch := make(chan IKResponse, 1)
	c.ikMu.Lock()
	c.ikWaiters[req.ID] = ch
	c.ikMu.Unlock()
	defer func() {
		c.ikMu.Lock()
		delete(c.ikWaiters, req.ID)
		c.ikMu.Unlock()
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ik request: %w", err)
	}
	topic := fmt.Sprintf(topicIKRequest, c.side)
	if token := c.mqtt.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("publish ik request: %w", token.Error())
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(ikTimeout):
		return nil, fmt.Errorf("ik request %s timed out", req.ID)
	case resp := <-ch:
		if !resp.Valid {
			return nil, fmt.Errorf("no ik solution for requested pose")
		}
		out := make(map[sawyer.JointName]float64, len(resp.Joints.Name))
		for i, name := range resp.Joints.Name {
			if i < len(resp.Joints.Position) {
				out[sawyer.JointName(name)] = resp.Joints.Position[i]
			}
		}
		return out, nil
	}
}

// Limits returns the joint limits from the retained startup message.
func (c *Client) Limits(context.Context) (sawyer.JointLimits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limits, nil
}

// Enabled reports the robot-enable status.
func (c *Client) Enabled(context.Context) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.assembly.Enabled, nil
}

// Gripper returns the gripper command surface of this connection.
func (c *Client) Gripper() *GripperClient {
	return &GripperClient{c: c}
}

// GripperClient publishes gripper commands over the shared connection.
type GripperClient struct {
	c *Client
}

func (g *GripperClient) publish(cmd GripperCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal gripper command: %w", err)
	}
	if token := g.c.mqtt.Publish(topicGripper, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish gripper command: %w", token.Error())
	}
	return nil
}

// Open fully opens the gripper.
func (g *GripperClient) Open(context.Context) error {
	return g.publish(GripperCommand{Command: "open"})
}

// SetPosition commands the gripper aperture, 0 (closed) to 100 (open).
func (g *GripperClient) SetPosition(_ context.Context, position float64) error {
	return g.publish(GripperCommand{Command: "go_to", Position: position})
}

var (
	_ sawyer.Limb    = (*Client)(nil)
	_ sawyer.Gripper = (*GripperClient)(nil)
)
