// Package command defines the action command vocabulary for the body.
//
// Commands arrive as loosely typed JSON on the transports and are parsed
// into a closed set of typed variants here. Validation happens at parse
// time so nothing downstream ever sees an out-of-range parameter.
package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies a command variant.
type Kind string

const (
	KindMove  Kind = "move"
	KindHead  Kind = "head"
	KindRGB   Kind = "rgb"
	KindSpeak Kind = "speak"
	KindSound Kind = "sound"
	KindWake  Kind = "wake"
	KindSleep Kind = "sleep"
	KindReset Kind = "reset"
	KindCombo Kind = "combo"
	KindPing  Kind = "ping"
)

// Command is the closed interface over all command variants.
// Implementations are the structs in this package and nothing else.
type Command interface {
	Kind() Kind

	// Validate checks all parameters against the documented ranges.
	// A command that fails validation must never reach the executor.
	Validate() error
}

// Move walks, turns or performs a named gait action.
type Move struct {
	Action string `json:"action"`
	Steps  int    `json:"steps,omitempty"`
	Speed  int    `json:"speed,omitempty"`
}

// Head positions the head. Angles are degrees.
type Head struct {
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// RGB sets the LED strip.
type RGB struct {
	R    int     `json:"r"`
	G    int     `json:"g"`
	B    int     `json:"b"`
	Mode string  `json:"mode,omitempty"`
	BPS  float64 `json:"bps,omitempty"` // blink/breath cycles per second
}

// Speak renders text through the body's TTS voice.
type Speak struct {
	Text string `json:"text"`
}

// Sound plays a named built-in sound effect.
type Sound struct {
	Name string `json:"name"`
}

// Wake runs the wake-up sequence.
type Wake struct{}

// Sleep runs the sleep sequence.
type Sleep struct{}

// Reset returns the body to a neutral standing pose.
type Reset struct{}

// Ping is a no-op liveness command.
type Ping struct{}

// Combo is an ordered sequence of primitive commands executed as one
// logical unit, with an optional speech line played alongside.
type Combo struct {
	Steps []Command
	Speak string
}

func (Move) Kind() Kind  { return KindMove }
func (Head) Kind() Kind  { return KindHead }
func (RGB) Kind() Kind   { return KindRGB }
func (Speak) Kind() Kind { return KindSpeak }
func (Sound) Kind() Kind { return KindSound }
func (Wake) Kind() Kind  { return KindWake }
func (Sleep) Kind() Kind { return KindSleep }
func (Reset) Kind() Kind { return KindReset }
func (Ping) Kind() Kind  { return KindPing }
func (Combo) Kind() Kind { return KindCombo }

// wire is the loose JSON shape shared by both transports:
// {"cmd":"move","action":"forward","steps":3,...}
type wire struct {
	Cmd    string  `json:"cmd"`
	Action string  `json:"action,omitempty"`
	Steps  int     `json:"steps,omitempty"`
	Speed  int     `json:"speed,omitempty"`
	Yaw    float64 `json:"yaw,omitempty"`
	Roll   float64 `json:"roll,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	R      int     `json:"r,omitempty"`
	G      int     `json:"g,omitempty"`
	B      int     `json:"b,omitempty"`
	Mode   string  `json:"mode,omitempty"`
	BPS    float64 `json:"bps,omitempty"`
	Text   string  `json:"text,omitempty"`
	Name   string  `json:"name,omitempty"`
}

// Parse decodes a wire-format JSON command and validates it.
func Parse(data []byte) (Command, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return FromWire(w.Cmd, w)
}

// FromWire builds a validated Command from already-decoded wire fields.
func FromWire(cmd string, w wire) (Command, error) {
	var c Command
	switch Kind(cmd) {
	case KindMove:
		c = Move{Action: w.Action, Steps: w.Steps, Speed: w.Speed}
	case KindHead:
		c = Head{Yaw: w.Yaw, Roll: w.Roll, Pitch: w.Pitch}
	case KindRGB:
		c = RGB{R: w.R, G: w.G, B: w.B, Mode: w.Mode, BPS: w.BPS}
	case KindSpeak:
		c = Speak{Text: w.Text}
	case KindSound:
		c = Sound{Name: w.Name}
	case KindWake:
		c = Wake{}
	case KindSleep:
		c = Sleep{}
	case KindReset:
		c = Reset{}
	case KindPing:
		c = Ping{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, cmd)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return normalize(c), nil
}

// Normalize fills defaulted fields on a validated command: move steps
// and speed, LED mode and blink rate.
func Normalize(c Command) Command {
	return normalize(c)
}

// normalize fills defaulted fields after validation passed.
func normalize(c Command) Command {
	switch v := c.(type) {
	case Move:
		// validation matched case-insensitively; the daemon gets
		// the canonical form
		v.Action = strings.ToLower(strings.TrimSpace(v.Action))
		if v.Steps == 0 {
			v.Steps = DefaultSteps
		}
		if v.Speed == 0 {
			v.Speed = DefaultSpeed
		}
		return v
	case Sound:
		v.Name = strings.ToLower(strings.TrimSpace(v.Name))
		return v
	case RGB:
		if v.Mode == "" {
			v.Mode = "solid"
		}
		if v.BPS == 0 {
			v.BPS = 1.0
		}
		return v
	default:
		return c
	}
}

// comboWire is the /combo request shape, matching the brain's action
// schema: {"actions":["wag_tail"], "speak":"hi", "rgb":{...}, "head":{...}}
type comboWire struct {
	Actions []string `json:"actions,omitempty"`
	Speak   string   `json:"speak,omitempty"`
	RGB     *RGB     `json:"rgb,omitempty"`
	Head    *Head    `json:"head,omitempty"`
}

// ParseCombo decodes a combo request into an ordered step sequence.
// Steps preserve request order: named actions first, then head, then rgb.
func ParseCombo(data []byte) (Combo, error) {
	var cw comboWire
	if err := json.Unmarshal(data, &cw); err != nil {
		return Combo{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	combo := Combo{Speak: cw.Speak}
	for _, action := range cw.Actions {
		combo.Steps = append(combo.Steps, normalize(Move{Action: action}))
	}
	if cw.Head != nil {
		combo.Steps = append(combo.Steps, *cw.Head)
	}
	if cw.RGB != nil {
		combo.Steps = append(combo.Steps, normalize(*cw.RGB))
	}

	if err := combo.Validate(); err != nil {
		return Combo{}, err
	}
	return combo, nil
}
