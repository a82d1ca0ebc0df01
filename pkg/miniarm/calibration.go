// Package miniarm drives a desk-scale serial servo arm behind the same
// Limb interface as the real robot. It exists for policy bring-up:
// joint-space control and observation work, while the cartesian
// endpoint block of the observation reads zero (the bus has no forward
// kinematics) and velocity/effort command modes are not available.
package miniarm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// ServoCalibration maps one servo's raw position counts to a joint
// angle range in radians.
type ServoCalibration struct {
	ID     int     `json:"id"`
	RawMin int     `json:"raw_min"`
	RawMax int     `json:"raw_max"`
	RadMin float64 `json:"rad_min"`
	RadMax float64 `json:"rad_max"`
}

// ToRadians converts a raw servo position to a joint angle.
func (c ServoCalibration) ToRadians(raw int) float64 {
	rangeSize := float64(c.RawMax - c.RawMin)
	if rangeSize == 0 {
		return c.RadMin
	}
	frac := float64(raw-c.RawMin) / rangeSize
	return c.RadMin + frac*(c.RadMax-c.RadMin)
}

// FromRadians converts a joint angle to a raw servo position, clamped
// to the calibrated range.
func (c ServoCalibration) FromRadians(rad float64) int {
	if c.RadMax == c.RadMin {
		return c.RawMin
	}
	frac := (rad - c.RadMin) / (c.RadMax - c.RadMin)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return c.RawMin + int(frac*float64(c.RawMax-c.RawMin)+0.5)
}

// Calibration holds calibration data for all joints, keyed by the
// robot joint each servo stands in for.
type Calibration map[sawyer.JointName]ServoCalibration

// GripperKey is the calibration-file entry naming the gripper servo.
const GripperKey = sawyer.JointName("gripper")

// SplitGripper separates the optional gripper entry from the arm
// joints. The returned calibration no longer contains the gripper;
// without a gripper entry the receiver is returned as is.
func (c Calibration) SplitGripper() (Calibration, *ServoCalibration) {
	sc, ok := c[GripperKey]
	if !ok {
		return c, nil
	}
	arm := make(Calibration, len(c)-1)
	for name, v := range c {
		if name == GripperKey {
			continue
		}
		arm[name] = v
	}
	return arm, &sc
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]ServoCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, sc := range raw {
		cal[sawyer.JointName(name)] = sc
	}
	return cal, nil
}

// ServoIDs returns the servo IDs in fixed joint order.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range sawyer.ArmJoints() {
		if sc, ok := c[name]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns the joint name and calibration for a servo ID.
func (c Calibration) ByID(id int) (sawyer.JointName, ServoCalibration, bool) {
	for name, sc := range c {
		if sc.ID == id {
			return name, sc, true
		}
	}
	return "", ServoCalibration{}, false
}
