// Package hardware provides the adapter contract for a robot body and
// implementations for the real servo daemon and a test mock.
//
// The adapter is the only code that touches actuators or non-camera
// sensors. Everything above it (executor, sensor loop) works against the
// interface, so the same bridge runs on different bodies.
package hardware

import "context"

// SensorReadings is one sample of the body's non-camera sensors.
// Per-sensor failures surface as the matching *Err field so a single
// flaky sensor degrades one reading instead of the whole sample.
type SensorReadings struct {
	BatteryVolts float64 `json:"battery_v"`
	BatteryPct   int     `json:"battery_pct"`
	Charging     bool    `json:"charging"`

	Touch    string `json:"touch"` // "N", "L", "R", "LS", "RS"
	Touched  bool   `json:"touched"`
	TouchErr string `json:"touch_error,omitempty"`

	Pitch  float64 `json:"pitch"`
	Roll   float64 `json:"roll"`
	IMUErr string  `json:"imu_error,omitempty"`

	SoundDetected  bool    `json:"sound_detected"`
	SoundDirection float64 `json:"sound_direction,omitempty"` // degrees, 0 = front
	SoundErr       string  `json:"sound_error,omitempty"`

	// Speech is the daemon's speech recognizer output since the last
	// poll, empty when nothing was heard.
	Speech string `json:"speech,omitempty"`

	DistanceCM float64 `json:"distance_cm,omitempty"` // <= 0 means no reading
	BatteryErr string  `json:"battery_error,omitempty"`
}

// MoveController executes gait and posture actions.
type MoveController interface {
	Move(ctx context.Context, action string, steps, speed int) error
	Stop(ctx context.Context) error
}

// HeadController positions the head. Angles are degrees.
type HeadController interface {
	Head(ctx context.Context, yaw, roll, pitch float64) error
}

// LightController drives the RGB strip.
type LightController interface {
	RGB(ctx context.Context, r, g, b int, mode string, bps float64) error
}

// VoiceController speaks text and plays built-in sounds.
type VoiceController interface {
	Speak(ctx context.Context, text string) error
	PlaySound(ctx context.Context, name string) error
}

// SensorReader reads the body's non-camera sensors.
type SensorReader interface {
	Sensors(ctx context.Context) (SensorReadings, error)
}

// Adapter is the composite interface for a full robot body.
type Adapter interface {
	MoveController
	HeadController
	LightController
	VoiceController
	SensorReader

	// BodyType identifies the body ("pidog", "mock", ...).
	BodyType() string

	// Close releases the connection to the hardware.
	Close() error
}

var (
	_ Adapter = (*DaemonAdapter)(nil)
	_ Adapter = (*Mock)(nil)
)
