package hardware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// daemonTimeout bounds a single request/response exchange. Speech can
// take a while; everything else must be quick.
const (
	daemonTimeout = 10 * time.Second
	speakTimeout  = 20 * time.Second
	maxLine       = 256 * 1024
)

// DaemonAdapter talks to the low-level servo daemon over TCP using
// line-delimited JSON: one request object per line, one response line
// back. Connections are per-request; the daemon serializes internally.
type DaemonAdapter struct {
	addr string
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewDaemonAdapter creates an adapter for the daemon at addr
// (e.g. "localhost:9999").
func NewDaemonAdapter(addr string) *DaemonAdapter {
	return &DaemonAdapter{
		addr: addr,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// BodyType identifies the daemon-backed body.
func (a *DaemonAdapter) BodyType() string { return "pidog" }

// send performs one request/response exchange with the daemon.
func (a *DaemonAdapter) send(ctx context.Context, timeout time.Duration, req map[string]any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := a.dial(ctx, a.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("%w: write: %v", ErrDaemonUnreachable, err)
	}

	r := bufio.NewReaderSize(conn, maxLine)
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("%w: read: %v", ErrDaemonUnreachable, err)
	}

	var resp map[string]any
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msg, ok := resp["error"].(string); ok && msg != "" {
		return resp, fmt.Errorf("%w: %s", ErrHardwareFault, msg)
	}
	return resp, nil
}

func (a *DaemonAdapter) Move(ctx context.Context, action string, steps, speed int) error {
	_, err := a.send(ctx, daemonTimeout, map[string]any{
		"cmd": "move", "action": action, "steps": steps, "speed": speed,
	})
	return err
}

func (a *DaemonAdapter) Stop(ctx context.Context) error {
	_, err := a.send(ctx, daemonTimeout, map[string]any{
		"cmd": "move", "action": "stand", "steps": 1, "speed": 100,
	})
	return err
}

func (a *DaemonAdapter) Head(ctx context.Context, yaw, roll, pitch float64) error {
	_, err := a.send(ctx, daemonTimeout, map[string]any{
		"cmd": "head", "yaw": yaw, "roll": roll, "pitch": pitch,
	})
	return err
}

func (a *DaemonAdapter) RGB(ctx context.Context, r, g, b int, mode string, bps float64) error {
	_, err := a.send(ctx, daemonTimeout, map[string]any{
		"cmd": "rgb", "r": r, "g": g, "b": b, "mode": mode, "bps": bps,
	})
	return err
}

func (a *DaemonAdapter) Speak(ctx context.Context, text string) error {
	_, err := a.send(ctx, speakTimeout, map[string]any{"cmd": "speak", "text": text})
	return err
}

func (a *DaemonAdapter) PlaySound(ctx context.Context, name string) error {
	_, err := a.send(ctx, daemonTimeout, map[string]any{"cmd": "sound", "name": name})
	return err
}

// Sensors reads the full sensor set in one daemon round trip.
func (a *DaemonAdapter) Sensors(ctx context.Context) (SensorReadings, error) {
	resp, err := a.send(ctx, daemonTimeout, map[string]any{"cmd": "sensors"})
	if err != nil {
		return SensorReadings{}, err
	}
	return parseSensors(resp), nil
}

// Close is a no-op: connections are per-request.
func (a *DaemonAdapter) Close() error { return nil }

func parseSensors(resp map[string]any) SensorReadings {
	var s SensorReadings

	s.BatteryVolts = num(resp["battery_v"])
	s.BatteryPct = int(num(resp["battery_pct"]))
	s.Charging, _ = resp["charging"].(bool)
	s.BatteryErr, _ = resp["battery_error"].(string)

	if touch, ok := resp["touch"].(string); ok {
		s.Touch = touch
		s.Touched = touch != "" && touch != "N"
	} else {
		s.Touch = "N"
	}
	s.TouchErr, _ = resp["touch_error"].(string)

	if imu, ok := resp["imu"].(map[string]any); ok {
		s.Pitch = num(imu["pitch"])
		s.Roll = num(imu["roll"])
	}
	s.IMUErr, _ = resp["imu_error"].(string)

	if snd, ok := resp["sound"].(map[string]any); ok {
		s.SoundDetected, _ = snd["detected"].(bool)
		s.SoundDirection = num(snd["direction"])
	}
	s.SoundErr, _ = resp["sound_error"].(string)
	s.Speech, _ = resp["speech"].(string)

	s.DistanceCM = num(resp["distance_cm"])
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
