// Package monitor polls a rig at a fixed rate and publishes readings.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/gwillem/dxlservo/pkg/rig"
	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/telemetry"
)

// JointState is the latest reading of one joint.
type JointState struct {
	Name     string
	Snapshot servo.Snapshot
	// Normalized is the angle mapped onto [-100, 100] over the joint range.
	Normalized float64
	Err        error
}

// State is the outcome of one poll cycle.
type State struct {
	Joints    []JointState
	Timestamp time.Time
	Error     error
}

// Positions returns normalized angles keyed by joint, skipping failed reads.
func (s State) Positions() map[string]float64 {
	out := make(map[string]float64, len(s.Joints))
	for _, j := range s.Joints {
		if j.Err == nil {
			out[j.Name] = j.Normalized
		}
	}
	return out
}

// Config holds configuration for the controller.
type Config struct {
	Rig *rig.Rig
	Hz  int
	// FaultEvery is the number of cycles between temperature checks.
	// Defaults to Hz (once a second).
	FaultEvery int
	// Hold enables torque while running and disables it on shutdown.
	Hold bool

	Recorder *telemetry.Recorder
	Metrics  *telemetry.Metrics
}

// Controller manages the polling loop.
type Controller struct {
	rig        *rig.Rig
	hz         int
	faultEvery int
	hold       bool
	recorder   *telemetry.Recorder
	metrics    *telemetry.Metrics

	mu      sync.RWMutex
	running bool
	stateCh chan State
	logCh   chan string

	// loop state
	cycles     int
	lastStatus map[string]uint8
}

// NewController creates a controller for cfg.Rig.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Rig == nil {
		return nil, fmt.Errorf("monitor: no rig")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 20
	}
	if cfg.FaultEvery <= 0 {
		cfg.FaultEvery = cfg.Hz
	}
	return &Controller{
		rig:        cfg.Rig,
		hz:         cfg.Hz,
		faultEvery: cfg.FaultEvery,
		hold:       cfg.Hold,
		recorder:   cfg.Recorder,
		metrics:    cfg.Metrics,
		stateCh:    make(chan State, 1),
		logCh:      make(chan string, 10),
		lastStatus: make(map[string]uint8),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the polling frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Running reports whether the loop is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Notice forwards a servo notice to the log channel, the recorder and the
// metrics. Pass it as the rig's OnNotice.
func (c *Controller) Notice(n servo.Notice) {
	name := fmt.Sprintf("servo %d", n.ServoID)
	if j, ok := c.rig.JointByID(n.ServoID); ok {
		name = j.Name
	}
	c.log("%s: %s", name, n.Message)
	c.metrics.HandleNotice(n)
	if c.recorder != nil {
		if err := c.recorder.Notice(name, n); err != nil {
			c.log("record: %v", err)
		}
	}
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the polling loop until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if c.hold {
		if err := c.rig.EnableAll(ctx); err != nil {
			c.log("Warning: failed to enable torque: %v", err)
		} else {
			c.log("Torque enabled on %d joints", len(c.rig.Joints()))
		}
	}
	c.log("Monitoring started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	start := time.Now()
	c.cycles++
	checkTemp := c.cycles%c.faultEvery == 0

	st := State{Timestamp: start}
	for _, j := range c.rig.Joints() {
		js := JointState{Name: j.Name}
		snap, err := j.Session.Snapshot(ctx)
		if err != nil {
			js.Err = err
			st.Error = multierr.Append(st.Error, fmt.Errorf("%s: %w", j.Name, err))
			c.log("%s: read error: %v", j.Name, err)
			c.metrics.ObserveError(j.Name, err)
			if c.recorder != nil {
				if rerr := c.recorder.Error(j.Name, j.Session.ID(), err); rerr != nil {
					c.log("record: %v", rerr)
				}
			}
			st.Joints = append(st.Joints, js)
			continue
		}

		js.Snapshot = snap
		js.Normalized = j.Range.Normalize(snap.Angle)
		st.Joints = append(st.Joints, js)

		c.metrics.Observe(j.Name, snap)
		if c.recorder != nil {
			if err := c.recorder.Sample(j.Name, snap); err != nil {
				c.log("record: %v", err)
			}
		}
		c.checkFaults(ctx, j, snap.Status, checkTemp)
	}

	c.metrics.ObserveCycle(time.Since(start))
	c.sendState(st)
}

// checkFaults diagnoses a newly raised hardware error once and checks the
// temperature every faultEvery cycles.
func (c *Controller) checkFaults(ctx context.Context, j *rig.Joint, status uint8, checkTemp bool) {
	prev := c.lastStatus[j.Name]
	c.lastStatus[j.Name] = status
	if status != 0 && status != prev {
		d, err := j.Session.CheckShutdown(ctx)
		if err != nil {
			c.log("%s: shutdown check failed: %v", j.Name, err)
			c.metrics.ObserveError(j.Name, err)
		} else {
			c.log("%s: %s", j.Name, d)
		}
		return
	}
	if checkTemp && status == 0 {
		if _, err := j.Session.CheckTemperature(ctx); err != nil {
			c.log("%s: temperature check failed: %v", j.Name, err)
		}
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.hold {
		if err := c.rig.DisableAll(context.Background()); err != nil {
			c.log("Warning: failed to disable torque: %v", err)
		} else {
			c.log("Torque disabled")
		}
	}
	c.log("Monitoring stopped")
}
