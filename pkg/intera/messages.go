// Package intera talks to the robot middleware bridge over MQTT. It
// mirrors the message layout the bridge republishes from the robot:
// retained state topics for joint and endpoint state, a retained
// joint-limits message published once at robot startup, and command
// topics for joint, gripper and IK requests.
package intera

// JointState carries named joint positions, velocities and efforts.
// The three value slices line up with Name.
type JointState struct {
	Name     []string  `json:"name"`
	Position []float64 `json:"position"`
	Velocity []float64 `json:"velocity"`
	Effort   []float64 `json:"effort"`
}

// Point is a 3D vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation in x, y, z, w order.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// EndpointState is the end-effector pose, twist and wrench.
type EndpointState struct {
	Pose struct {
		Position    Point      `json:"position"`
		Orientation Quaternion `json:"orientation"`
	} `json:"pose"`
	Twist struct {
		Linear  Point `json:"linear"`
		Angular Point `json:"angular"`
	} `json:"twist"`
	Wrench struct {
		Force  Point `json:"force"`
		Torque Point `json:"torque"`
	} `json:"wrench"`
}

// JointLimitsMsg is published retained once at robot startup.
type JointLimitsMsg struct {
	JointNames []string  `json:"joint_names"`
	Velocity   []float64 `json:"velocity"`
	Effort     []float64 `json:"effort"`
}

// Joint command modes, mirroring the robot's JointCommand message.
const (
	PositionMode   = 1
	VelocityMode   = 2
	TorqueMode     = 3
	TrajectoryMode = 4
)

// JointCommand drives the arm. Exactly one of Position, Velocity or
// Effort is filled, matching Mode.
type JointCommand struct {
	Mode     int       `json:"mode"`
	Names    []string  `json:"names"`
	Position []float64 `json:"position,omitempty"`
	Velocity []float64 `json:"velocity,omitempty"`
	Effort   []float64 `json:"effort,omitempty"`
}

// GripperCommand drives the end-effector actuator.
type GripperCommand struct {
	Command  string  `json:"command"` // "open" or "go_to"
	Position float64 `json:"position,omitempty"`
}

// AssemblyState is the robot-enable status.
type AssemblyState struct {
	Enabled bool `json:"enabled"`
	Stopped bool `json:"stopped"`
	Error   bool `json:"error"`
}

// IKRequest asks the middleware to resolve an end-effector pose to
// joint angles. ID correlates the response.
type IKRequest struct {
	ID      string `json:"id"`
	TipName string `json:"tip_name"`
	Pose    struct {
		Position    Point      `json:"position"`
		Orientation Quaternion `json:"orientation"`
	} `json:"pose"`
}

// IKResponse carries the solver verdict and, when valid, the solution.
type IKResponse struct {
	ID     string     `json:"id"`
	Valid  bool       `json:"valid"`
	Joints JointState `json:"joints"`
}
