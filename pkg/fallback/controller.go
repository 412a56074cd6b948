// Package fallback keeps the robot behaving when the brain goes away.
//
// A probe loop watches the brain transport. When no probe succeeds for
// a full window the controller drops into autonomous mode: a reduced
// local reaction set keeps the body responsive (touch, sound, battery)
// and a simplified TCP transport stays open for direct control. The
// first successful probe hands control back to the brain.
package fallback

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/noxbotics/go-nox/internal/httpc"
	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/latest"
	"github.com/noxbotics/go-nox/pkg/sensors"
)

// State is the degradation mode.
type State string

const (
	// StateBridge means the brain is reachable and in charge.
	StateBridge State = "bridge"
	// StateAutonomous means the brain is gone and local reactions run.
	StateAutonomous State = "autonomous"
)

// Config tunes the controller.
type Config struct {
	// BrainURL is the brain's base URL, probed at /healthz.
	BrainURL string

	// ProbeInterval is the time between probes.
	ProbeInterval time.Duration

	// ProbeWindow is how long probes may fail before the controller
	// enters autonomous mode.
	ProbeWindow time.Duration

	// ListenAddr is the simplified TCP transport address.
	ListenAddr string

	// BatteryLow and BatteryCritical are voltage thresholds.
	BatteryLow      float64
	BatteryCritical float64
}

// DefaultConfig returns production thresholds.
func DefaultConfig() Config {
	return Config{
		ProbeInterval:   5 * time.Second,
		ProbeWindow:     20 * time.Second,
		BatteryLow:      6.8,
		BatteryCritical: 6.2,
	}
}

// Controller owns the bridge/autonomous state machine.
type Controller struct {
	cfg  Config
	exec *executor.Executor
	caps *latest.Cell[sensors.Capture]

	// Probe checks brain reachability. Defaults to an HTTP GET of
	// BrainURL/healthz; tests replace it.
	Probe func(ctx context.Context) error

	// OnChange is called on every state transition.
	OnChange func(s State)

	// OnEvent announces noteworthy conditions ("battery_low", ...).
	OnEvent func(event, detail string)

	mu        sync.Mutex
	state     State
	lastOK    time.Time
	lowSaid   bool
	critSaid  bool
	lastTouch time.Time
	lastSound time.Time
	lastSeq   uint64
}

// New creates a controller in bridge mode.
func New(cfg Config, exec *executor.Executor, caps *latest.Cell[sensors.Capture]) *Controller {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 5 * time.Second
	}
	if cfg.ProbeWindow <= 0 {
		cfg.ProbeWindow = 20 * time.Second
	}
	c := &Controller{
		cfg:    cfg,
		exec:   exec,
		caps:   caps,
		state:  StateBridge,
		lastOK: time.Now(),
	}
	c.Probe = c.httpProbe
	return c
}

// State returns the current mode.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current mode as a plain string, for status reports.
func (c *Controller) Mode() string {
	return string(c.State())
}

// Run drives the probe loop and, while autonomous, the local reaction
// loop. Blocks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	go c.reactLoop(ctx)

	ticker := time.NewTicker(c.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// MarkAlive records brain activity seen elsewhere (an authenticated
// bridge request, a websocket message) as proof of reachability.
func (c *Controller) MarkAlive() {
	c.mu.Lock()
	c.lastOK = time.Now()
	recovered := c.state == StateAutonomous
	if recovered {
		c.state = StateBridge
	}
	c.mu.Unlock()
	if recovered {
		log.Info("brain active on the bridge, leaving autonomous mode")
		c.notify(StateBridge, "fallback_left", "")
	}
}

// Check runs one probe and applies the state machine.
func (c *Controller) Check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeInterval)
	err := c.Probe(probeCtx)
	cancel()

	now := time.Now()
	c.mu.Lock()
	if err == nil {
		c.lastOK = now
		if c.state == StateAutonomous {
			c.state = StateBridge
			c.mu.Unlock()
			log.Info("brain reachable again, leaving autonomous mode")
			c.notify(StateBridge, "fallback_left", "")
			return
		}
		c.mu.Unlock()
		return
	}

	if c.state == StateBridge && now.Sub(c.lastOK) >= c.cfg.ProbeWindow {
		c.state = StateAutonomous
		c.mu.Unlock()
		log.Warn("brain unreachable, entering autonomous mode",
			"window", c.cfg.ProbeWindow, "error", err)
		c.notify(StateAutonomous, "fallback_entered", err.Error())
		return
	}
	c.mu.Unlock()
	log.Debug("brain probe failed", "error", err)
}

func (c *Controller) notify(s State, event, detail string) {
	if c.OnChange != nil {
		c.OnChange(s)
	}
	if c.OnEvent != nil {
		c.OnEvent(event, detail)
	}
}

func (c *Controller) httpProbe(ctx context.Context) error {
	url := strings.TrimSuffix(c.cfg.BrainURL, "/") + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnreachable, err)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnreachable, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrTransportUnreachable, resp.StatusCode)
	}
	return nil
}
