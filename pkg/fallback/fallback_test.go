package fallback

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/noxbotics/go-nox/pkg/executor"
	"github.com/noxbotics/go-nox/pkg/hardware"
	"github.com/noxbotics/go-nox/pkg/latest"
	"github.com/noxbotics/go-nox/pkg/sensors"
)

var errProbe = errors.New("connection refused")

func testController(t *testing.T) (*Controller, *hardware.Mock, *latest.Cell[sensors.Capture]) {
	t.Helper()
	mock := hardware.NewMock()
	exec := executor.New(mock)
	t.Cleanup(func() { exec.Close() })

	caps := latest.NewCell[sensors.Capture]()
	cfg := DefaultConfig()
	cfg.ProbeInterval = 10 * time.Millisecond
	cfg.ProbeWindow = 30 * time.Millisecond
	return New(cfg, exec, caps), mock, caps
}

func TestStartsInBridgeMode(t *testing.T) {
	c, _, _ := testController(t)
	if c.State() != StateBridge {
		t.Fatalf("state = %v, want bridge", c.State())
	}
}

func TestEntersAutonomousAfterWindow(t *testing.T) {
	c, _, _ := testController(t)
	c.Probe = func(ctx context.Context) error { return errProbe }

	var transitions []State
	c.OnChange = func(s State) { transitions = append(transitions, s) }

	ctx := context.Background()
	c.Check(ctx)
	if c.State() != StateBridge {
		t.Fatal("dropped before the window elapsed")
	}

	time.Sleep(35 * time.Millisecond)
	c.Check(ctx)
	if c.State() != StateAutonomous {
		t.Fatalf("state = %v, want autonomous", c.State())
	}
	if len(transitions) != 1 || transitions[0] != StateAutonomous {
		t.Fatalf("transitions = %v", transitions)
	}

	// repeated failures must not re-announce the transition
	c.Check(ctx)
	if len(transitions) != 1 {
		t.Fatalf("transitions = %v, want one", transitions)
	}
}

func TestRecoversOnFirstSuccess(t *testing.T) {
	c, _, _ := testController(t)
	fail := true
	c.Probe = func(ctx context.Context) error {
		if fail {
			return errProbe
		}
		return nil
	}
	var events []string
	c.OnEvent = func(event, detail string) { events = append(events, event) }

	ctx := context.Background()
	c.Check(ctx)
	time.Sleep(35 * time.Millisecond)
	c.Check(ctx)
	if c.State() != StateAutonomous {
		t.Fatal("did not enter autonomous mode")
	}

	fail = false
	c.Check(ctx)
	if c.State() != StateBridge {
		t.Fatalf("state = %v, want bridge after recovery", c.State())
	}
	want := []string{"fallback_entered", "fallback_left"}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestBridgeActivityCountsAsLiveness(t *testing.T) {
	c, _, _ := testController(t)
	c.Probe = func(ctx context.Context) error { return errProbe }

	ctx := context.Background()
	c.Check(ctx)
	time.Sleep(35 * time.Millisecond)
	c.Check(ctx)
	if c.State() != StateAutonomous {
		t.Fatal("did not enter autonomous mode")
	}

	c.MarkAlive()
	if c.State() != StateBridge {
		t.Fatalf("state = %v, want bridge after activity", c.State())
	}

	// the fresh lastOK must hold off the next drop for a full window
	c.Check(ctx)
	if c.State() != StateBridge {
		t.Fatal("dropped immediately after activity")
	}
}

func TestTouchReactionOnlyWhenAutonomous(t *testing.T) {
	c, mock, _ := testController(t)
	ctx := context.Background()

	touched := sensors.Capture{
		Readings:   hardware.SensorReadings{BatteryVolts: 7.8, Touch: "L", Touched: true},
		ReadingsOK: true,
		At:         time.Now(),
	}

	c.react(ctx, touched)
	if mock.CallCount("move:wag_tail") != 0 {
		t.Fatal("reacted while the brain is in charge")
	}

	c.mu.Lock()
	c.state = StateAutonomous
	c.mu.Unlock()

	c.react(ctx, touched)
	if mock.CallCount("move:wag_tail") != 1 {
		t.Fatalf("calls = %v", mock.CallList())
	}
	if mock.CallCount("speak:") != 1 {
		t.Fatalf("greeting missing: %v", mock.CallList())
	}

	// cooldown: an immediate second touch is ignored
	c.react(ctx, touched)
	if mock.CallCount("move:wag_tail") != 1 {
		t.Fatalf("cooldown ignored: %v", mock.CallList())
	}
}

func TestSoundTurnsHeadTowardSource(t *testing.T) {
	c, mock, _ := testController(t)
	c.mu.Lock()
	c.state = StateAutonomous
	c.mu.Unlock()

	c.react(context.Background(), sensors.Capture{
		Readings: hardware.SensorReadings{
			BatteryVolts:   7.8,
			SoundDetected:  true,
			SoundDirection: 300, // wraps to -60
		},
		ReadingsOK: true,
		At:         time.Now(),
	})
	if mock.CallCount("head:-60:") != 1 {
		t.Fatalf("calls = %v", mock.CallList())
	}
}

func TestBatteryLowReaction(t *testing.T) {
	c, mock, _ := testController(t)
	c.mu.Lock()
	c.state = StateAutonomous
	c.mu.Unlock()

	var events []string
	c.OnEvent = func(event, detail string) { events = append(events, event) }

	low := sensors.Capture{
		Readings:   hardware.SensorReadings{BatteryVolts: 6.5},
		ReadingsOK: true,
		At:         time.Now(),
	}
	ctx := context.Background()
	c.react(ctx, low)
	if mock.CallCount("move:lie") != 1 {
		t.Fatalf("calls = %v", mock.CallList())
	}
	if len(events) != 1 || events[0] != "battery_low" {
		t.Fatalf("events = %v", events)
	}

	// the warning fires once per low episode
	c.react(ctx, low)
	if mock.CallCount("move:lie") != 1 {
		t.Fatalf("repeated warning: %v", mock.CallList())
	}
}

func TestBatteryCriticalFiresInBridgeModeToo(t *testing.T) {
	c, mock, _ := testController(t)
	var events []string
	c.OnEvent = func(event, detail string) { events = append(events, event) }

	c.react(context.Background(), sensors.Capture{
		Readings:   hardware.SensorReadings{BatteryVolts: 6.0},
		ReadingsOK: true,
		At:         time.Now(),
	})
	if len(events) != 1 || events[0] != "battery_critical" {
		t.Fatalf("events = %v", events)
	}
	if mock.CallCount("move:lie") != 1 {
		t.Fatalf("calls = %v", mock.CallList())
	}
}

func TestClampYaw(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{45, 45},
		{120, 80},
		{300, -60},
		{270, -80},
		{-30, -30},
	}
	for _, tc := range cases {
		if got := clampYaw(tc.in); got != tc.want {
			t.Errorf("clampYaw(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestServePrimitiveCommands(t *testing.T) {
	c, mock, _ := testController(t)
	c.cfg.ListenAddr = "127.0.0.1:0"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go c.serveConn(ctx, conn)
		}
	}()
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	rd := bufio.NewReader(conn)

	send := func(line string) lineResponse {
		t.Helper()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatal(err)
		}
		raw, err := rd.ReadBytes('\n')
		if err != nil {
			t.Fatal(err)
		}
		var resp lineResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("bad response %q: %v", raw, err)
		}
		return resp
	}

	resp := send(`{"cmd":"move","action":"sit"}`)
	if !resp.OK {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Mode != "bridge" {
		t.Fatalf("mode = %q", resp.Mode)
	}
	if mock.CallCount("move:sit") != 1 {
		t.Fatalf("calls = %v", mock.CallList())
	}

	resp = send(`{"cmd":"combo"}`)
	if resp.OK || resp.Error == "" {
		t.Fatalf("combo accepted: %+v", resp)
	}

	resp = send(`not json`)
	if resp.OK {
		t.Fatalf("garbage accepted: %+v", resp)
	}
}
