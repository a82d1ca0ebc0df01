package rl

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

const defaultReachThreshold = 0.03 // m

// ReachEnv is a reaching task over the robot adapter: the end effector
// is rewarded for closing the distance to a cartesian goal. An episode
// ends when the goal is reached or the planning scene reports the arm
// in an invalid state.
type ReachEnv struct {
	robot *sawyer.Robot
	goal  [3]float64
	spec  EnvSpec

	// Threshold is the reach distance that ends the episode.
	Threshold float64
	// SafetyPenalty is subtracted from the reward when an episode is
	// cut short by an invalid state.
	SafetyPenalty float64
}

// NewReachEnv builds a reaching task toward goal. The action space is
// resolved here, so a misconfigured control mode surfaces at
// environment construction rather than mid-episode.
func NewReachEnv(robot *sawyer.Robot, goal [3]float64) (*ReachEnv, error) {
	action, err := robot.ActionSpace()
	if err != nil {
		return nil, fmt.Errorf("resolve action space: %w", err)
	}
	return &ReachEnv{
		robot: robot,
		goal:  goal,
		spec: EnvSpec{
			Action:      action,
			Observation: robot.ObservationSpace(),
		},
		Threshold:     defaultReachThreshold,
		SafetyPenalty: 10,
	}, nil
}

// Spec describes the environment's spaces.
func (e *ReachEnv) Spec() EnvSpec {
	return e.spec
}

// Reset moves the arm to its start configuration and returns the first
// observation.
func (e *ReachEnv) Reset(ctx context.Context) ([]float64, error) {
	if err := e.robot.Reset(ctx); err != nil {
		return nil, err
	}
	return e.robot.Observation(ctx)
}

// Step sends the action to the arm and scores the resulting state.
func (e *ReachEnv) Step(ctx context.Context, action []float64) ([]float64, float64, bool, error) {
	if err := e.robot.SendCommand(ctx, action); err != nil {
		return nil, 0, false, err
	}

	obs, err := e.robot.Observation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	pos, err := e.robot.GripperPosition(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	dist := floats.Distance(pos[:], e.goal[:], 2)
	reward := -dist
	done := dist < e.Threshold

	safe, err := e.robot.SafetyCheck(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	if !safe {
		reward -= e.SafetyPenalty
		done = true
	}
	return obs, reward, done, nil
}

var _ Env = (*ReachEnv)(nil)
