package executor

import (
	"sync"
	"time"
)

// Mode is the body's sleep/awake mode.
type Mode string

const (
	ModeAwake  Mode = "awake"
	ModeAsleep Mode = "asleep"
)

// Pose is the current head pose in degrees.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// LEDState is the current RGB strip setting.
type LEDState struct {
	R    int     `json:"r"`
	G    int     `json:"g"`
	B    int     `json:"b"`
	Mode string  `json:"mode"`
	BPS  float64 `json:"bps"`
}

// BodyState is the process-wide actuator state. The Executor is its only
// writer; everyone else reads copies via Snapshot.
type BodyState struct {
	Pose         Pose      `json:"pose"`
	LED          LEDState  `json:"led"`
	Mode         Mode      `json:"mode"`
	BatteryVolts float64   `json:"battery_v"`
	LastAction   string    `json:"last_action,omitempty"`
	LastCombo    string    `json:"last_combo,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// bodyState wraps BodyState with its lock. Internal to the executor.
type bodyState struct {
	mu sync.RWMutex
	s  BodyState
}

func newBodyState() *bodyState {
	return &bodyState{
		s: BodyState{
			Mode:      ModeAwake,
			LED:       LEDState{Mode: "solid"},
			UpdatedAt: time.Now(),
		},
	}
}

func (b *bodyState) update(fn func(*BodyState)) {
	b.mu.Lock()
	fn(&b.s)
	b.s.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *bodyState) snapshot() BodyState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s
}
