package main

import (
	"github.com/bohan-zhang/sawyer/pkg/motion"
	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// KeepOut is a joint-space region the arm must stay out of. A state is
// in the region when every listed joint lies inside its interval.
type KeepOut struct {
	Name   string                `json:"name"`
	Joints map[string][2]float64 `json:"joints"`
}

// Scene is a stand-in planning scene: a state is valid when every joint
// is inside its factory bounds (shrunk by Margin) and outside every
// keep-out region.
type Scene struct {
	// Margin shrinks the factory bounds on both sides, in radians.
	Margin float64
	// KeepOut regions reported as contacts when hit.
	KeepOut []KeepOut
}

// Check evaluates one validity request.
func (s *Scene) Check(req motion.StateValidityRequest) motion.StateValidityResponse {
	resp := motion.StateValidityResponse{Valid: true}

	positions := make(map[string]float64, len(req.JointNames))
	for i, name := range req.JointNames {
		if i >= len(req.Positions) {
			break
		}
		positions[name] = req.Positions[i]

		low, high, ok := sawyer.PositionLimit(sawyer.JointName(name))
		if !ok {
			resp.Valid = false
			resp.Contacts = append(resp.Contacts, "unknown_joint/"+name)
			continue
		}
		if p := req.Positions[i]; p < low+s.Margin || p > high-s.Margin {
			resp.Valid = false
			resp.Contacts = append(resp.Contacts, "joint_limit/"+name)
		}
	}

	for _, region := range s.KeepOut {
		if len(region.Joints) == 0 {
			continue
		}
		inside := true
		for name, interval := range region.Joints {
			p, ok := positions[name]
			if !ok || p < interval[0] || p > interval[1] {
				inside = false
				break
			}
		}
		if inside {
			resp.Valid = false
			resp.Contacts = append(resp.Contacts, "keep_out/"+region.Name)
		}
	}
	return resp
}
