package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Adapter for tests. It records every call and can
// be scripted to fail specific operations or delay execution.
type Mock struct {
	mu sync.Mutex

	// Calls records operations in order, e.g. "move:forward", "rgb".
	Calls []string

	// FailOn maps an operation name ("move", "head", "rgb", "speak",
	// "sound", "sensors") to the error it should return.
	FailOn map[string]error

	// Delay is applied to every actuator call, for overlap tests.
	Delay time.Duration

	// Readings is returned by Sensors.
	Readings SensorReadings

	closed bool
}

// NewMock creates a mock body with healthy default sensor readings.
func NewMock() *Mock {
	return &Mock{
		FailOn: make(map[string]error),
		Readings: SensorReadings{
			BatteryVolts: 7.8,
			BatteryPct:   75,
			Touch:        "N",
		},
	}
}

func (m *Mock) record(op string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, op)
	m.mu.Unlock()

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	return nil
}

func (m *Mock) fail(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FailOn[op]
}

func (m *Mock) BodyType() string { return "mock" }

func (m *Mock) Move(ctx context.Context, action string, steps, speed int) error {
	if err := m.fail("move"); err != nil {
		return err
	}
	return m.record(fmt.Sprintf("move:%s:%d:%d", action, steps, speed))
}

func (m *Mock) Stop(ctx context.Context) error {
	return m.record("stop")
}

func (m *Mock) Head(ctx context.Context, yaw, roll, pitch float64) error {
	if err := m.fail("head"); err != nil {
		return err
	}
	return m.record(fmt.Sprintf("head:%.0f:%.0f:%.0f", yaw, roll, pitch))
}

func (m *Mock) RGB(ctx context.Context, r, g, b int, mode string, bps float64) error {
	if err := m.fail("rgb"); err != nil {
		return err
	}
	return m.record(fmt.Sprintf("rgb:%d:%d:%d:%s", r, g, b, mode))
}

func (m *Mock) Speak(ctx context.Context, text string) error {
	if err := m.fail("speak"); err != nil {
		return err
	}
	return m.record("speak:" + text)
}

func (m *Mock) PlaySound(ctx context.Context, name string) error {
	if err := m.fail("sound"); err != nil {
		return err
	}
	return m.record("sound:" + name)
}

func (m *Mock) Sensors(ctx context.Context) (SensorReadings, error) {
	if err := m.fail("sensors"); err != nil {
		return SensorReadings{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "sensors")
	return m.Readings, nil
}

// SetReadings replaces the sensor sample returned by Sensors.
func (m *Mock) SetReadings(r SensorReadings) {
	m.mu.Lock()
	m.Readings = r
	m.mu.Unlock()
}

// CallCount returns the number of recorded calls with the given prefix.
func (m *Mock) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// CallList returns a copy of the recorded calls.
func (m *Mock) CallList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
