package rl

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Path is one episode's worth of transitions.
type Path struct {
	Observations [][]float64
	Actions      [][]float64
	Rewards      []float64
	// Returns and Advantages are filled by the training loop before
	// the path reaches Policy.Update.
	Returns    []float64
	Advantages []float64
}

// TotalReward sums the rewards along the path.
func (p Path) TotalReward() float64 {
	var total float64
	for _, r := range p.Rewards {
		total += r
	}
	return total
}

// Discount computes discounted returns-to-go: out[t] is the sum of
// rewards[t:] with each step discounted by gamma.
func Discount(rewards []float64, gamma float64) []float64 {
	out := make([]float64, len(rewards))
	var running float64
	for t := len(rewards) - 1; t >= 0; t-- {
		running = rewards[t] + gamma*running
		out[t] = running
	}
	return out
}

// MeanReturn averages the total reward across paths.
func MeanReturn(paths []Path) float64 {
	if len(paths) == 0 {
		return 0
	}
	totals := make([]float64, len(paths))
	for i, p := range paths {
		totals[i] = p.TotalReward()
	}
	return stat.Mean(totals, nil)
}

// Rollout runs the policy in the environment for one episode of at most
// maxLength steps.
func Rollout(ctx context.Context, env Env, policy Policy, maxLength int) (Path, error) {
	var path Path

	obs, err := env.Reset(ctx)
	if err != nil {
		return Path{}, fmt.Errorf("reset env: %w", err)
	}

	for t := 0; t < maxLength; t++ {
		action, err := policy.Act(obs)
		if err != nil {
			return Path{}, fmt.Errorf("policy act: %w", err)
		}

		next, reward, done, err := env.Step(ctx, action)
		if err != nil {
			return Path{}, fmt.Errorf("env step: %w", err)
		}

		path.Observations = append(path.Observations, obs)
		path.Actions = append(path.Actions, action)
		path.Rewards = append(path.Rewards, reward)

		if done {
			break
		}
		obs = next
	}
	return path, nil
}
