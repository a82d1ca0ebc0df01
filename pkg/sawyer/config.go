package sawyer

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "sawyer.json"

// Limb backends selectable in the config file.
const (
	BackendIntera  = "intera"  // robot middleware over MQTT
	BackendMiniarm = "miniarm" // desk-scale serial servo arm
)

// Config holds the robot configuration
type Config struct {
	Backend               string                `json:"backend,omitempty"`
	Broker                string                `json:"broker"`
	ClientID              string                `json:"client_id,omitempty"`
	Port                  string                `json:"port,omitempty"`
	CalibrationFile       string                `json:"calibration_file,omitempty"`
	ValidityURL           string                `json:"validity_url"`
	PlanningGroup         string                `json:"planning_group"`
	ControlMode           string                `json:"control_mode"`
	InitialJointPositions map[JointName]float64 `json:"initial_joint_positions"`
	WithGripper           bool                  `json:"with_gripper,omitempty"`
}

// BackendName returns the configured limb backend, defaulting to the
// robot middleware when the field is empty.
func (c *Config) BackendName() (string, error) {
	switch c.Backend {
	case "":
		return BackendIntera, nil
	case BackendIntera, BackendMiniarm:
		return c.Backend, nil
	default:
		return "", fmt.Errorf("backend %q is not known", c.Backend)
	}
}

// RobotConfig converts the file configuration to adapter options. The
// control mode string is parsed eagerly here; callers that want the lazy
// first-use error can fill RobotConfig directly.
func (c *Config) RobotConfig() (RobotConfig, error) {
	mode, err := ParseControlMode(c.ControlMode)
	if err != nil {
		return RobotConfig{}, err
	}
	return RobotConfig{
		InitialJointPositions: c.InitialJointPositions,
		PlanningGroup:         c.PlanningGroup,
		Mode:                  mode,
		WithGripper:           c.WithGripper,
	}, nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
