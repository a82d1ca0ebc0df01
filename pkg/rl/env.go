// Package rl defines the environment, policy and baseline boundary the
// experiment launcher wires together, plus the rollout bookkeeping the
// batch training loop needs. Policy optimization itself lives behind
// the Policy interface; this package never computes a gradient.
package rl

import (
	"context"
	"math/rand"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// EnvSpec describes an environment's action and observation spaces.
type EnvSpec struct {
	Action      sawyer.Box
	Observation sawyer.Box
}

// Env is an instance of an RL environment.
type Env interface {
	// Reset starts a new episode and returns the first observation.
	Reset(ctx context.Context) ([]float64, error)
	// Step applies an action and returns the next observation, the
	// reward, and whether the episode has ended.
	Step(ctx context.Context, action []float64) (obs []float64, reward float64, done bool, err error)
	// Spec describes the environment's spaces.
	Spec() EnvSpec
}

// Policy maps observations to actions. Update is where an external
// optimizer improves the policy from a batch of paths; implementations
// that do not learn return nil.
type Policy interface {
	Act(obs []float64) ([]float64, error)
	Update(paths []Path) error
}

// Baseline predicts per-timestep returns, used to reduce variance in
// whatever optimizer sits behind Policy.Update.
type Baseline interface {
	Fit(paths []Path) error
	Predict(path Path) []float64
}

// RandomPolicy samples actions uniformly from the action space. It is a
// bring-up tool for exercising hardware, not a learner.
type RandomPolicy struct {
	Space sawyer.Box
	Rng   *rand.Rand
}

// NewRandomPolicy builds a uniform policy over the given action space.
func NewRandomPolicy(space sawyer.Box, seed int64) *RandomPolicy {
	return &RandomPolicy{Space: space, Rng: rand.New(rand.NewSource(seed))}
}

// Act ignores the observation and samples uniformly.
func (p *RandomPolicy) Act([]float64) ([]float64, error) {
	return p.Space.Sample(p.Rng), nil
}

// Update is a no-op.
func (p *RandomPolicy) Update([]Path) error { return nil }

// ZeroBaseline predicts zero for every timestep.
type ZeroBaseline struct{}

// Fit is a no-op.
func (ZeroBaseline) Fit([]Path) error { return nil }

// Predict returns zeros sized to the path.
func (ZeroBaseline) Predict(path Path) []float64 {
	return make([]float64, len(path.Rewards))
}
