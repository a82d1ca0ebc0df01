package main

import (
	"context"
	"fmt"

	"github.com/bohan-zhang/sawyer/internal/logging"
	"github.com/bohan-zhang/sawyer/pkg/experiment"
	"github.com/bohan-zhang/sawyer/pkg/rl"
)

type RunCommand struct {
	Config   string `long:"config" default:"sawyer.json" description:"Robot config file"`
	LogLevel string `long:"log-level" default:"info" description:"Log level"`

	BatchSize  int     `long:"batch-size" default:"10000" description:"Timesteps per iteration"`
	PathLength int     `long:"path-length" default:"100" description:"Max episode length"`
	Iterations int     `long:"iterations" default:"40" description:"Training iterations"`
	Discount   float64 `long:"discount" default:"0.99" description:"Reward discount factor"`

	Parallel int    `long:"parallel" default:"1" description:"Task replicas (each opens its own connection)"`
	Snapshot string `long:"snapshot" default:"last" choice:"all" choice:"last" choice:"none" description:"Snapshot mode"`
	Seed     int64  `long:"seed" default:"1" description:"Random seed"`
	Plot     bool   `long:"plot" description:"Accepted for compatibility; plot progress.csv externally"`
	LogDir   string `long:"log-dir" default:"data" description:"Run output directory"`

	Goal []float64 `long:"goal" default:"0.65" default:"0.1" default:"0.35" description:"Reach goal (x y z), repeat flag per coordinate"`
}

func (c *RunCommand) Execute(args []string) error {
	if len(c.Goal) != 3 {
		return fmt.Errorf("goal needs exactly 3 coordinates, got %d", len(c.Goal))
	}
	goal := [3]float64{c.Goal[0], c.Goal[1], c.Goal[2]}

	ctx, cancel := signalContext()
	defer cancel()

	logger := logging.NewLogger(c.LogLevel)

	return experiment.RunExperiment(ctx, experiment.RunConfig{
		NParallel:    c.Parallel,
		SnapshotMode: c.Snapshot,
		Seed:         c.Seed,
		Plot:         c.Plot,
		LogDir:       c.LogDir,
		Logger:       logger,
	}, func(ctx context.Context, run *experiment.Run) error {
		// Each replica owns its middleware connection.
		robot, conn, err := connectRobot(ctx, c.Config, c.LogLevel)
		if err != nil {
			return err
		}
		defer conn.Close()

		env, err := rl.NewReachEnv(robot, goal)
		if err != nil {
			return err
		}
		policy := rl.NewRandomPolicy(env.Spec().Action, run.Seed)

		algo := &rl.BatchAlgo{
			Env:           env,
			Policy:        policy,
			Baseline:      rl.ZeroBaseline{},
			BatchSize:     c.BatchSize,
			MaxPathLength: c.PathLength,
			NItr:          c.Iterations,
			Discount:      c.Discount,
			Logger:        run.Logger,
			OnIteration: func(itr int, stats rl.IterationStats) {
				if err := run.Record(map[string]float64{
					"itr":         float64(itr),
					"paths":       float64(stats.Paths),
					"timesteps":   float64(stats.Timesteps),
					"mean_return": stats.MeanReturn,
				}); err != nil {
					run.Logger.Warn("record progress", "error", err)
				}
				if err := run.Snapshot(itr, struct {
					Itr        int     `json:"itr"`
					Seed       int64   `json:"seed"`
					MeanReturn float64 `json:"mean_return"`
				}{itr, run.Seed, stats.MeanReturn}); err != nil {
					run.Logger.Warn("write snapshot", "error", err)
				}
			},
		}
		return algo.Train(ctx)
	})
}
