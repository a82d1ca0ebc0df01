// Package experiment runs training tasks under a common harness:
// seeding, a per-run log directory, parameter snapshots and a tabular
// progress log.
package experiment

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Snapshot modes.
const (
	SnapshotAll  = "all"  // keep a snapshot per iteration
	SnapshotLast = "last" // overwrite a single snapshot
	SnapshotNone = "none" // no snapshots
)

// RunConfig controls the harness.
type RunConfig struct {
	// NParallel is the number of task replicas to run. Values below 1
	// mean a single run.
	NParallel int
	// SnapshotMode is one of "all", "last" or "none".
	SnapshotMode string
	// Seed seeds each replica's RNG (replica i gets Seed+i).
	Seed int64
	// Plot is accepted for launcher compatibility; plotting is done by
	// external tooling over the progress log.
	Plot bool
	// LogDir is the parent directory for run output. Empty means
	// "data/" under the working directory.
	LogDir string

	Logger *slog.Logger
}

// Run is the per-replica handle a task receives.
type Run struct {
	// Rng is the replica's seeded random source.
	Rng *rand.Rand
	// Seed is the replica's effective seed.
	Seed int64
	// Dir is the replica's output directory.
	Dir string

	Logger *slog.Logger

	cfg RunConfig

	mu       sync.Mutex
	progress *csv.Writer
	file     *os.File
	header   []string
}

// Task is one training run. It should block until training completes.
type Task func(ctx context.Context, run *Run) error

// RunExperiment executes the task under the harness and blocks until
// every replica finishes. Replica errors are joined.
func RunExperiment(ctx context.Context, cfg RunConfig, task Task) error {
	if cfg.NParallel < 1 {
		cfg.NParallel = 1
	}
	switch cfg.SnapshotMode {
	case "":
		cfg.SnapshotMode = SnapshotLast
	case SnapshotAll, SnapshotLast, SnapshotNone:
	default:
		return fmt.Errorf("snapshot mode %q is not known", cfg.SnapshotMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root := cfg.LogDir
	if root == "" {
		root = "data"
	}
	stamp := time.Now().Format("2006-01-02_15-04-05")
	root = filepath.Join(root, stamp)

	// All directories are created up front, so a failure cannot leave
	// already-launched replicas running.
	dirs := make([]string, cfg.NParallel)
	for i := range dirs {
		dir := root
		if cfg.NParallel > 1 {
			dir = filepath.Join(root, strconv.Itoa(i))
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		dirs[i] = dir
	}

	errs := make([]error, cfg.NParallel)
	var wg sync.WaitGroup
	for i := 0; i < cfg.NParallel; i++ {
		seed := cfg.Seed + int64(i)
		run := &Run{
			Rng:    rand.New(rand.NewSource(seed)),
			Seed:   seed,
			Dir:    dirs[i],
			Logger: logger.With("replica", i, "seed", seed),
			cfg:    cfg,
		}

		wg.Add(1)
		go func(i int, run *Run) {
			defer wg.Done()
			defer run.closeProgress()
			run.Logger.Info("replica started", "dir", run.Dir)
			errs[i] = task(ctx, run)
			if errs[i] != nil {
				run.Logger.Error("replica failed", "error", errs[i])
			}
		}(i, run)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Snapshot writes the params under the configured snapshot mode. itr
// selects the file name in "all" mode.
func (r *Run) Snapshot(itr int, params any) error {
	var name string
	switch r.cfg.SnapshotMode {
	case SnapshotNone:
		return nil
	case SnapshotAll:
		name = fmt.Sprintf("itr_%d.json", itr)
	default:
		name = "params.json"
	}

	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Record appends one row to the replica's progress.csv. The header is
// taken from the first call and must not change afterwards.
func (r *Run) Record(columns map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		f, err := os.Create(filepath.Join(r.Dir, "progress.csv"))
		if err != nil {
			return fmt.Errorf("create progress log: %w", err)
		}
		r.file = f
		r.progress = csv.NewWriter(f)

		r.header = make([]string, 0, len(columns))
		for k := range columns {
			r.header = append(r.header, k)
		}
		sort.Strings(r.header)
		if err := r.progress.Write(r.header); err != nil {
			return fmt.Errorf("write progress header: %w", err)
		}
	}

	row := make([]string, len(r.header))
	for i, k := range r.header {
		v, ok := columns[k]
		if !ok {
			return fmt.Errorf("progress column %q missing", k)
		}
		row[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := r.progress.Write(row); err != nil {
		return fmt.Errorf("write progress row: %w", err)
	}
	r.progress.Flush()
	return r.progress.Error()
}

func (r *Run) closeProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		r.progress.Flush()
	}
	if r.file != nil {
		r.file.Close()
	}
}
