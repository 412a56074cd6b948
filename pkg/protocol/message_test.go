package protocol

import (
	"testing"
	"time"
)

func TestPerceptionRoundTrip(t *testing.T) {
	msg, err := NewPerceptionMessage(PerceptionReport{
		Faces:   []FaceReport{{Name: "alice", Similarity: 0.82, X: 0.4, Y: 0.3, W: 0.2, H: 0.2, Confidence: 0.95}},
		Objects: []ObjectReport{{Label: "cup", Confidence: 0.7, X: 0.1, Y: 0.6, W: 0.05, H: 0.08}},
		Room:    "kitchen",
		Scene:   "a person at a table",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypePerception || msg.Timestamp == 0 {
		t.Fatalf("envelope: %+v", msg)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}

	report, err := parsed.GetPerceptionReport()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Faces) != 1 || report.Faces[0].Name != "alice" {
		t.Errorf("faces: %+v", report.Faces)
	}
	if report.Room != "kitchen" {
		t.Errorf("room: %q", report.Room)
	}
}

func TestActionRequestRoundTrip(t *testing.T) {
	msg, err := NewActionMessage(ActionRequest{
		Actions: []string{"wag_tail", "bark"},
		Speak:   "hello there",
		RGB:     &RGBSetting{G: 255, Mode: "breath", BPS: 1.5},
		Head:    &HeadSetting{Yaw: 20, Pitch: -10},
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := msg.Bytes()
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Type != TypeAction {
		t.Fatalf("type: %s", parsed.Type)
	}

	req, err := parsed.GetActionRequest()
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Actions) != 2 || req.Speak != "hello there" {
		t.Errorf("request: %+v", req)
	}
	if req.RGB == nil || req.RGB.G != 255 {
		t.Errorf("rgb: %+v", req.RGB)
	}
	if req.Head == nil || req.Head.Yaw != 20 {
		t.Errorf("head: %+v", req.Head)
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("abc")
	if err != nil {
		t.Fatal(err)
	}

	pingData, err := ping.GetPingData()
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UnixMilli()
	pong, err := NewPongMessage(pingData.ID, ping.Timestamp, now)
	if err != nil {
		t.Fatal(err)
	}
	pongData, err := pong.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	if pongData.ID != "abc" {
		t.Errorf("id: %q", pongData.ID)
	}
	if pongData.LatencyMs != now-ping.Timestamp {
		t.Errorf("latency: %d", pongData.LatencyMs)
	}
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("garbage accepted")
	}
}
