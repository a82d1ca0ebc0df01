// Package watch polls the arm and publishes state updates for display.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// State is one observation of the arm.
type State struct {
	Angles    map[sawyer.JointName]float64
	Safe      bool
	Timestamp time.Time
	Error     error
}

// Watcher runs the polling loop.
type Watcher struct {
	robot *sawyer.Robot
	hz    int

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// New creates a watcher polling at hz. Values below 1 default to 10 Hz.
func New(robot *sawyer.Robot, hz int) *Watcher {
	if hz <= 0 {
		hz = 10
	}
	return &Watcher{
		robot:   robot,
		hz:      hz,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (w *Watcher) States() <-chan State {
	return w.stateCh
}

// Logs returns a channel that receives log messages.
func (w *Watcher) Logs() <-chan string {
	return w.logCh
}

// Hz returns the polling frequency.
func (w *Watcher) Hz() int {
	return w.hz
}

func (w *Watcher) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case w.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the polling loop and blocks until the context ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("already running")
	}
	w.running = true
	w.mu.Unlock()

	if enabled, err := w.robot.Enabled(ctx); err == nil && !enabled {
		w.log("Warning: robot reports disabled")
	}
	w.log("Watching at %d Hz", w.hz)

	ticker := time.NewTicker(time.Second / time.Duration(w.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.log("Stopped")
			return ctx.Err()
		case <-ticker.C:
			w.step(ctx)
		}
	}
}

func (w *Watcher) step(ctx context.Context) {
	angles, err := w.robot.JointAngles(ctx)
	if err != nil {
		w.log("Read error: %v", err)
		w.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	safe, err := w.robot.SafetyCheck(ctx)
	if err != nil {
		w.log("Safety check error: %v", err)
		safe = false
	}

	w.sendState(State{
		Angles:    angles,
		Safe:      safe,
		Timestamp: time.Now(),
	})
}

func (w *Watcher) sendState(s State) {
	select {
	case w.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-w.stateCh:
		default:
		}
		w.stateCh <- s
	}
}
