// Package sensors runs the capture loop: it polls the camera and the
// body's sensor bus on a fixed cadence and publishes each sample to a
// latest-value cell for the perception pipeline and the bridge.
//
// A source that keeps failing is marked unavailable and re-probed at a
// slower interval instead of being hammered every tick. The loop never
// stops on sensor failure; a capture with a missing source is still
// published as long as the other source delivered.
package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/camera"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/latest"
)

// Capture is one sensor sample. Frame is nil when the camera did not
// deliver; ReadingsOK is false when the sensor bus did not.
type Capture struct {
	Frame      []byte
	Readings   hardware.SensorReadings
	ReadingsOK bool
	At         time.Time
}

// Health reports per-source availability.
type Health struct {
	CameraOK bool `json:"camera_ok"`
	BodyOK   bool `json:"body_ok"`
}

// LoopConfig tunes the capture cadence and failure handling.
type LoopConfig struct {
	// Interval between captures.
	Interval time.Duration

	// FailThreshold is the number of consecutive failures after
	// which a source is considered unavailable.
	FailThreshold int

	// ReprobeInterval is how often an unavailable source is retried.
	ReprobeInterval time.Duration
}

// DefaultLoopConfig returns the production cadence.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Interval:        500 * time.Millisecond,
		FailThreshold:   3,
		ReprobeInterval: 5 * time.Second,
	}
}

// source tracks one input's failure state.
type source struct {
	failures    int
	unavailable bool
	lastProbe   time.Time
}

// due reports whether the source should be attempted this tick.
func (s *source) due(now time.Time, reprobe time.Duration) bool {
	if !s.unavailable {
		return true
	}
	return now.Sub(s.lastProbe) >= reprobe
}

func (s *source) ok() {
	s.failures = 0
	s.unavailable = false
}

func (s *source) fail(now time.Time, threshold int) bool {
	s.failures++
	s.lastProbe = now
	if !s.unavailable && s.failures >= threshold {
		s.unavailable = true
		return true
	}
	return false
}

// Loop polls the camera and sensor bus and publishes captures.
type Loop struct {
	cfg  LoopConfig
	cam  camera.Source
	body hardware.SensorReader
	cell *latest.Cell[Capture]

	// OnBattery, when set, receives every successful battery
	// reading. Used to feed the executor's body state.
	OnBattery func(volts float64)

	mu      sync.Mutex
	camSrc  source
	bodySrc source
}

// NewLoop creates a capture loop over the given sources.
func NewLoop(cfg LoopConfig, cam camera.Source, body hardware.SensorReader) *Loop {
	return &Loop{
		cfg:  cfg,
		cam:  cam,
		body: body,
		cell: latest.NewCell[Capture](),
	}
}

// Cell returns the latest-value cell captures are published to.
func (l *Loop) Cell() *latest.Cell[Capture] {
	return l.cell
}

// Health reports current source availability.
func (l *Loop) Health() Health {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Health{
		CameraOK: l.cam != nil && !l.camSrc.unavailable,
		BodyOK:   !l.bodySrc.unavailable,
	}
}

// Run drives the loop until the context is canceled. The first capture
// happens immediately.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.capture(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.capture(ctx)
		}
	}
}

func (l *Loop) capture(ctx context.Context) {
	now := time.Now()
	sample := Capture{At: now}
	got := false

	l.mu.Lock()
	camDue := l.cam != nil && l.camSrc.due(now, l.cfg.ReprobeInterval)
	bodyDue := l.bodySrc.due(now, l.cfg.ReprobeInterval)
	l.mu.Unlock()

	if camDue {
		frame, err := l.cam.Capture()
		l.mu.Lock()
		if err != nil {
			if l.camSrc.fail(now, l.cfg.FailThreshold) {
				log.Warn("camera unavailable", "error", err)
			}
		} else {
			l.camSrc.ok()
			sample.Frame = frame
			got = true
		}
		l.mu.Unlock()
	}

	if bodyDue {
		readings, err := l.body.Sensors(ctx)
		l.mu.Lock()
		if err != nil {
			if l.bodySrc.fail(now, l.cfg.FailThreshold) {
				log.Warn("sensor bus unavailable", "error", err)
			}
		} else {
			l.bodySrc.ok()
			sample.Readings = readings
			sample.ReadingsOK = true
			got = true
		}
		l.mu.Unlock()

		if err == nil && l.OnBattery != nil && readings.BatteryVolts > 0 {
			l.OnBattery(readings.BatteryVolts)
		}
	}

	if got {
		l.cell.Publish(sample)
	}
}
