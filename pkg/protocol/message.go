// Package protocol defines the websocket message types exchanged
// between the body bridge and the brain.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of websocket message.
type MessageType string

const (
	// Body → brain messages
	TypePerception MessageType = "perception" // perception report
	TypeVoice      MessageType = "voice"      // heard transcripts
	TypeEvent      MessageType = "event"      // mode changes, battery alerts

	// Brain → body messages
	TypeAction  MessageType = "action"  // combo action request
	TypeExpress MessageType = "express" // named emotion

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all websocket messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Body → Brain
// =============================================================================

// FaceReport is one face in a perception report.
type FaceReport struct {
	Name       string  `json:"name,omitempty"` // empty for unknown faces
	Similarity float64 `json:"similarity,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

// ObjectReport is one object in a perception report.
type ObjectReport struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

// SensorReport mirrors the body's non-camera sensors.
type SensorReport struct {
	BatteryVolts   float64 `json:"battery_v"`
	BatteryPct     int     `json:"battery_pct"`
	Touch          string  `json:"touch"`
	Pitch          float64 `json:"pitch"`
	Roll           float64 `json:"roll"`
	SoundDetected  bool    `json:"sound_detected"`
	SoundDirection float64 `json:"sound_direction,omitempty"`
	DistanceCM     float64 `json:"distance_cm,omitempty"`
}

// AudioReport carries heard speech and its direction.
type AudioReport struct {
	Speech    string  `json:"speech,omitempty"`
	Direction float64 `json:"direction,omitempty"`
}

// PerceptionReport is the body's view of the world at one instant.
type PerceptionReport struct {
	Faces   []FaceReport   `json:"faces"`
	Objects []ObjectReport `json:"objects"`
	Room    string         `json:"room,omitempty"`
	Scene   string         `json:"scene_description,omitempty"`
	Audio   *AudioReport   `json:"audio,omitempty"`
	Sensors *SensorReport  `json:"sensors,omitempty"`
}

// VoiceReport carries freshly heard transcripts.
type VoiceReport struct {
	Messages []VoiceMessage `json:"messages"`
}

// VoiceMessage is one transcript.
type VoiceMessage struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	HeardAt int64  `json:"heard_at"` // Unix milliseconds
}

// EventReport describes a state change worth telling the brain about.
type EventReport struct {
	Event  string `json:"event"` // "fallback_entered", "fallback_left", "battery_low", ...
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// Brain → Body
// =============================================================================

// ActionRequest is a combo action: named movements in order with an
// optional spoken line, LED pattern and head pose.
type ActionRequest struct {
	Actions []string     `json:"actions"`
	Speak   string       `json:"speak,omitempty"`
	RGB     *RGBSetting  `json:"rgb,omitempty"`
	Head    *HeadSetting `json:"head,omitempty"`
}

// RGBSetting is the LED pattern of an action request.
type RGBSetting struct {
	R    int     `json:"r"`
	G    int     `json:"g"`
	B    int     `json:"b"`
	Mode string  `json:"mode,omitempty"`
	BPS  float64 `json:"bps,omitempty"`
}

// HeadSetting is the head pose of an action request, degrees.
type HeadSetting struct {
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// ExpressRequest asks for a named emotion with an optional line.
type ExpressRequest struct {
	Emotion string `json:"emotion"`
	Text    string `json:"text,omitempty"`
}

// =============================================================================
// Bidirectional
// =============================================================================

// PingData contains ping information.
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains the pong response.
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
