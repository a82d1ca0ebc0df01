package main

import (
	"testing"

	"github.com/bohan-zhang/sawyer/pkg/motion"
)

func TestSceneCheck(t *testing.T) {
	scene := &Scene{
		Margin: 0.01,
		KeepOut: []KeepOut{
			{
				Name: "table",
				Joints: map[string][2]float64{
					"right_j1": {1.0, 2.0},
					"right_j3": {-1.0, 0.0},
				},
			},
		},
	}

	tests := []struct {
		name  string
		req   motion.StateValidityRequest
		valid bool
	}{
		{
			name: "neutral pose",
			req: motion.StateValidityRequest{
				JointNames: []string{"right_j0", "right_j1"},
				Positions:  []float64{0, 0},
				Group:      "right_arm",
			},
			valid: true,
		},
		{
			name: "outside factory bounds",
			req: motion.StateValidityRequest{
				JointNames: []string{"right_j0"},
				Positions:  []float64{3.1},
			},
			valid: false,
		},
		{
			name: "inside margin band",
			req: motion.StateValidityRequest{
				JointNames: []string{"right_j0"},
				Positions:  []float64{3.045},
			},
			valid: false,
		},
		{
			name: "unknown joint",
			req: motion.StateValidityRequest{
				JointNames: []string{"left_j0"},
				Positions:  []float64{0},
			},
			valid: false,
		},
		{
			name: "inside keep-out region",
			req: motion.StateValidityRequest{
				JointNames: []string{"right_j1", "right_j3"},
				Positions:  []float64{1.5, -0.5},
			},
			valid: false,
		},
		{
			name: "partially inside keep-out region",
			req: motion.StateValidityRequest{
				JointNames: []string{"right_j1", "right_j3"},
				Positions:  []float64{1.5, 0.5},
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := scene.Check(tt.req)
			if resp.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (contacts %v)", resp.Valid, tt.valid, resp.Contacts)
			}
			if !resp.Valid && len(resp.Contacts) == 0 {
				t.Error("invalid verdict without contacts")
			}
		})
	}
}
