package rl

import (
	"context"
	"math"
	"testing"
)

// recordingPolicy captures the batches handed to Update.
type recordingPolicy struct {
	inner   Policy
	batches [][]Path
}

func (p *recordingPolicy) Act(obs []float64) ([]float64, error) { return p.inner.Act(obs) }
func (p *recordingPolicy) Update(paths []Path) error {
	p.batches = append(p.batches, paths)
	return nil
}

func TestBatchAlgoTrain(t *testing.T) {
	env := &scriptedEnv{episodeLen: 5, reward: 2}
	policy := &recordingPolicy{inner: NewRandomPolicy(env.Spec().Action, 1)}

	algo := &BatchAlgo{
		Env:           env,
		Policy:        policy,
		Baseline:      ZeroBaseline{},
		BatchSize:     12,
		MaxPathLength: 5,
		NItr:          3,
		Discount:      0.9,
	}

	var itrs []IterationStats
	algo.OnIteration = func(_ int, s IterationStats) { itrs = append(itrs, s) }

	if err := algo.Train(context.Background()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	if len(policy.batches) != 3 {
		t.Fatalf("Update called %d times, want 3", len(policy.batches))
	}
	if len(itrs) != 3 {
		t.Fatalf("OnIteration called %d times, want 3", len(itrs))
	}

	// 12 timesteps at 5 per episode means 3 paths, 15 timesteps.
	if itrs[0].Paths != 3 || itrs[0].Timesteps != 15 {
		t.Errorf("stats = %+v, want 3 paths / 15 timesteps", itrs[0])
	}
	if math.Abs(itrs[0].MeanReturn-10) > 1e-9 {
		t.Errorf("MeanReturn = %v, want 10", itrs[0].MeanReturn)
	}

	// Returns and advantages must be filled before Update sees a path.
	p := policy.batches[0][0]
	if len(p.Returns) != 5 || len(p.Advantages) != 5 {
		t.Fatalf("returns/advantages not filled: %d/%d", len(p.Returns), len(p.Advantages))
	}
	// With a zero baseline, advantages equal returns.
	for i := range p.Returns {
		if p.Advantages[i] != p.Returns[i] {
			t.Errorf("advantage[%d] = %v, want %v", i, p.Advantages[i], p.Returns[i])
		}
	}
	wantFirst := Discount(p.Rewards, 0.9)[0]
	if math.Abs(p.Returns[0]-wantFirst) > 1e-9 {
		t.Errorf("Returns[0] = %v, want %v", p.Returns[0], wantFirst)
	}
}

func TestBatchAlgoValidatesConfig(t *testing.T) {
	algo := &BatchAlgo{
		Env:      &scriptedEnv{episodeLen: 1},
		Policy:   NewRandomPolicy((&scriptedEnv{}).Spec().Action, 1),
		Baseline: ZeroBaseline{},
	}
	if err := algo.Train(context.Background()); err == nil {
		t.Fatal("zero-valued hyperparameters should fail")
	}
}

func TestBatchAlgoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	algo := &BatchAlgo{
		Env:           &scriptedEnv{episodeLen: 5, reward: 1},
		Policy:        NewRandomPolicy((&scriptedEnv{}).Spec().Action, 1),
		Baseline:      ZeroBaseline{},
		BatchSize:     10,
		MaxPathLength: 5,
		NItr:          1000,
		Discount:      0.99,
	}
	if err := algo.Train(ctx); err == nil {
		t.Fatal("cancelled context should stop training with an error")
	}
}
