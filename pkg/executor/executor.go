// Package executor applies validated action commands to the body.
//
// Commands are serialized per actuator group: locomotion (legs + head),
// light (RGB strip) and voice (speaker) each have their own lock, so a
// speak or LED change may overlap a walk, but two walks never overlap.
// Physical actions run to completion; nothing is retried automatically.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/command"
	"github.com/noxbotics/go-nox/pkg/hardware"
)

// DefaultCommandTimeout bounds a single primitive command so a wedged
// daemon cannot hold an actuator group lock forever.
const DefaultCommandTimeout = 15 * time.Second

// Result reports the outcome of an Execute call.
type Result struct {
	Kind command.Kind `json:"kind"`

	// Completed is the number of primitive steps that ran. 1 for a
	// primitive command, 0..len(steps) for a combo.
	Completed int `json:"completed"`

	// Total is the number of primitive steps requested.
	Total int `json:"total"`

	// FailedStep is the index of the combo step that failed, or -1.
	FailedStep int `json:"failed_step"`

	// Elapsed is the wall time the command took.
	Elapsed time.Duration `json:"elapsed_ms"`
}

// Executor owns the actuators through a hardware.Adapter and is the
// single writer of BodyState.
type Executor struct {
	body    hardware.Adapter
	state   *bodyState
	timeout time.Duration

	// one lock per actuator group
	locomotion sync.Mutex
	light      sync.Mutex
	voice      sync.Mutex

	shuttingDown atomic.Bool
}

// New creates an executor over the given body adapter.
func New(body hardware.Adapter) *Executor {
	return &Executor{
		body:    body,
		state:   newBodyState(),
		timeout: DefaultCommandTimeout,
	}
}

// State returns a read-only copy of the current body state.
func (e *Executor) State() BodyState {
	return e.state.snapshot()
}

// UpdateBattery records the latest battery reading. Called by the
// sensor loop; the executor stays the sole writer of BodyState.
func (e *Executor) UpdateBattery(volts float64) {
	e.state.update(func(s *BodyState) { s.BatteryVolts = volts })
}

// Execute validates and applies cmd, blocking until the physical action
// completes or fails. Concurrent calls on disjoint actuator groups may
// overlap; within a group they are serialized.
func (e *Executor) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	start := time.Now()
	res := Result{Kind: cmd.Kind(), Total: 1, FailedStep: -1}

	if e.shuttingDown.Load() {
		return res, ErrShuttingDown
	}
	// Nothing unvalidated reaches hardware, whatever the transport did.
	if err := cmd.Validate(); err != nil {
		return res, err
	}

	if combo, ok := cmd.(command.Combo); ok {
		return e.executeCombo(ctx, combo, start)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.apply(ctx, cmd); err != nil {
		res.Elapsed = time.Since(start)
		return res, err
	}
	res.Completed = 1
	res.Elapsed = time.Since(start)
	return res, nil
}

// executeCombo runs the steps in order, aborting on the first failure.
// The speech line runs alongside the first step since it occupies only
// the voice group.
func (e *Executor) executeCombo(ctx context.Context, combo command.Combo, start time.Time) (Result, error) {
	res := Result{Kind: command.KindCombo, Total: len(combo.Steps), FailedStep: -1}

	var speakErr error
	var wg sync.WaitGroup
	if combo.Speak != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()
			speakErr = e.apply(sctx, command.Speak{Text: combo.Speak})
		}()
	}

	for i, step := range combo.Steps {
		sctx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.apply(sctx, step)
		cancel()
		if err != nil {
			res.FailedStep = i
			res.Elapsed = time.Since(start)
			wg.Wait()
			return res, fmt.Errorf("combo step %d (%s): %w", i, step.Kind(), err)
		}
		res.Completed++
	}
	wg.Wait()

	if speakErr != nil {
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("combo speak: %w", speakErr)
	}

	e.state.update(func(s *BodyState) { s.LastCombo = describeCombo(combo) })
	res.Elapsed = time.Since(start)
	return res, nil
}

// apply dispatches one primitive command under its actuator group lock
// and mutates BodyState on success.
func (e *Executor) apply(ctx context.Context, cmd command.Command) error {
	switch c := cmd.(type) {
	case command.Move:
		e.locomotion.Lock()
		defer e.locomotion.Unlock()
		if err := e.body.Move(ctx, c.Action, c.Steps, c.Speed); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) { s.LastAction = c.Action })

	case command.Head:
		e.locomotion.Lock()
		defer e.locomotion.Unlock()
		if err := e.body.Head(ctx, c.Yaw, c.Roll, c.Pitch); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) {
			s.Pose = Pose{Yaw: c.Yaw, Roll: c.Roll, Pitch: c.Pitch}
		})

	case command.RGB:
		e.light.Lock()
		defer e.light.Unlock()
		if err := e.body.RGB(ctx, c.R, c.G, c.B, c.Mode, c.BPS); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) {
			s.LED = LEDState{R: c.R, G: c.G, B: c.B, Mode: c.Mode, BPS: c.BPS}
		})

	case command.Speak:
		e.voice.Lock()
		defer e.voice.Unlock()
		if err := e.body.Speak(ctx, c.Text); err != nil {
			return wrapHW(err)
		}

	case command.Sound:
		e.voice.Lock()
		defer e.voice.Unlock()
		if err := e.body.PlaySound(ctx, c.Name); err != nil {
			return wrapHW(err)
		}

	case command.Wake:
		e.locomotion.Lock()
		defer e.locomotion.Unlock()
		if err := e.body.Move(ctx, "stretch", 1, 60); err != nil {
			return wrapHW(err)
		}
		if err := e.body.Move(ctx, "stand", 1, 60); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) {
			s.Mode = ModeAwake
			s.LastAction = "wake"
		})

	case command.Sleep:
		e.locomotion.Lock()
		defer e.locomotion.Unlock()
		if err := e.body.Move(ctx, "lie", 1, 50); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) {
			s.Mode = ModeAsleep
			s.LastAction = "sleep"
		})

	case command.Reset:
		e.locomotion.Lock()
		defer e.locomotion.Unlock()
		if err := e.body.Head(ctx, 0, 0, 0); err != nil {
			return wrapHW(err)
		}
		if err := e.body.Move(ctx, "stand", 1, 70); err != nil {
			return wrapHW(err)
		}
		e.state.update(func(s *BodyState) {
			s.Pose = Pose{}
			s.Mode = ModeAwake
			s.LastAction = "reset"
		})

	case command.Ping:
		// liveness only, no hardware access

	default:
		return fmt.Errorf("%w: unsupported kind %q", command.ErrInvalidCommand, cmd.Kind())
	}
	return nil
}

// Shutdown stops accepting new commands. In-flight commands complete.
func (e *Executor) Shutdown() {
	e.shuttingDown.Store(true)
}

// Close parks the actuators: head centered, LEDs off, body lying down.
// Call after Shutdown once in-flight commands have drained.
func (e *Executor) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	e.locomotion.Lock()
	defer e.locomotion.Unlock()
	e.light.Lock()
	defer e.light.Unlock()

	if err := e.body.Head(ctx, 0, 0, 0); err != nil {
		log.Warn("park head failed", "error", err)
	}
	if err := e.body.RGB(ctx, 0, 0, 0, "solid", 1); err != nil {
		log.Warn("LEDs off failed", "error", err)
	}
	if err := e.body.Move(ctx, "lie", 1, 50); err != nil {
		log.Warn("park body failed", "error", err)
	}
	return e.body.Close()
}

func wrapHW(err error) error {
	return fmt.Errorf("%w: %v", ErrExecutionFailure, err)
}

func describeCombo(c command.Combo) string {
	parts := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		if m, ok := s.(command.Move); ok {
			parts = append(parts, m.Action)
		} else {
			parts = append(parts, string(s.Kind()))
		}
	}
	return strings.Join(parts, ",")
}
