package rl

import (
	"context"
	"fmt"
	"log/slog"
)

// BatchAlgo is the blocking training entry point: for NItr iterations
// it collects a batch of paths, fits the baseline, computes discounted
// returns and advantages, and hands the batch to Policy.Update. The
// numeric optimization happens inside the policy implementation.
type BatchAlgo struct {
	Env      Env
	Policy   Policy
	Baseline Baseline

	// BatchSize is the minimum number of timesteps per iteration.
	BatchSize int
	// MaxPathLength caps a single episode.
	MaxPathLength int
	// NItr is the number of training iterations.
	NItr int
	// Discount is the reward discount factor.
	Discount float64

	Logger *slog.Logger

	// OnIteration, when set, receives per-iteration statistics. The
	// experiment runner uses this for its progress log.
	OnIteration func(itr int, stats IterationStats)
}

// IterationStats summarizes one training iteration.
type IterationStats struct {
	Paths      int
	Timesteps  int
	MeanReturn float64
}

// Train runs the full training loop. It blocks until all iterations
// complete, the context is cancelled, or a collaborator fails.
func (a *BatchAlgo) Train(ctx context.Context) error {
	if a.BatchSize <= 0 || a.MaxPathLength <= 0 || a.NItr <= 0 {
		return fmt.Errorf("batch size, path length and iteration count must be positive")
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for itr := 0; itr < a.NItr; itr++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		paths, timesteps, err := a.collectBatch(ctx)
		if err != nil {
			return fmt.Errorf("itr %d: %w", itr, err)
		}

		if err := a.Baseline.Fit(paths); err != nil {
			return fmt.Errorf("itr %d: fit baseline: %w", itr, err)
		}
		for i := range paths {
			paths[i].Returns = Discount(paths[i].Rewards, a.Discount)
			predicted := a.Baseline.Predict(paths[i])
			paths[i].Advantages = make([]float64, len(paths[i].Returns))
			for t, ret := range paths[i].Returns {
				paths[i].Advantages[t] = ret - predicted[t]
			}
		}

		if err := a.Policy.Update(paths); err != nil {
			return fmt.Errorf("itr %d: update policy: %w", itr, err)
		}

		stats := IterationStats{
			Paths:      len(paths),
			Timesteps:  timesteps,
			MeanReturn: MeanReturn(paths),
		}
		logger.Info("iteration complete",
			"itr", itr, "paths", stats.Paths,
			"timesteps", stats.Timesteps, "mean_return", stats.MeanReturn)
		if a.OnIteration != nil {
			a.OnIteration(itr, stats)
		}
	}
	return nil
}

func (a *BatchAlgo) collectBatch(ctx context.Context) ([]Path, int, error) {
	var paths []Path
	timesteps := 0
	for timesteps < a.BatchSize {
		path, err := Rollout(ctx, a.Env, a.Policy, a.MaxPathLength)
		if err != nil {
			return nil, 0, err
		}
		timesteps += len(path.Rewards)
		paths = append(paths, path)
	}
	return paths, timesteps, nil
}
