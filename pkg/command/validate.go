package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Mechanical and parameter limits. Head angles are degrees; exceeding
// them can strain the neck servos, so validation is strict.
const (
	YawMin, YawMax     = -80.0, 80.0
	RollMin, RollMax   = -30.0, 30.0
	PitchMin, PitchMax = -30.0, 30.0

	RGBMin, RGBMax = 0, 255
	BPSMin, BPSMax = 0.1, 5.0

	MaxSteps     = 10
	MaxSpeed     = 100
	DefaultSteps = 3
	DefaultSpeed = 80

	MaxTextLength = 500
	MaxComboSteps = 16
	MaxNameLength = 50
)

// Actions is the whitelist of gait/posture actions the body supports.
var Actions = map[string]bool{
	"forward": true, "backward": true, "turn_left": true, "turn_right": true,
	"stand": true, "sit": true, "lie": true, "wag_tail": true, "bark": true,
	"trot": true, "doze_off": true, "stretch": true, "push_up": true,
	"howling": true, "pant": true, "nod_lethargy": true, "shake_head": true,
	"nod": true,
}

// Sounds is the whitelist of built-in sound effect names.
var Sounds = map[string]bool{
	"single_bark_1": true, "single_bark_2": true, "barking": true,
	"howling": true, "pant": true, "angry": true, "growl_1": true,
	"growl_2": true, "confused_1": true, "confused_2": true,
	"confused_3": true, "snoring": true, "woohoo": true,
}

// RGBModes is the whitelist of LED animation modes.
var RGBModes = map[string]bool{
	"solid": true, "breath": true, "boom": true, "bang": true,
	"speak": true, "listen": true,
}

var (
	nameRe    = regexp.MustCompile(`^[\p{L}\p{N}_\s\-.]+$`)
	controlRe = regexp.MustCompile("[\x00-\x09\x0b-\x1f\x7f]")
)

func (m Move) Validate() error {
	action := strings.ToLower(strings.TrimSpace(m.Action))
	if !Actions[action] {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, m.Action)
	}
	if m.Steps < 0 || m.Steps > MaxSteps {
		return fmt.Errorf("%w: steps must be 1-%d", ErrInvalidCommand, MaxSteps)
	}
	if m.Speed < 0 || m.Speed > MaxSpeed {
		return fmt.Errorf("%w: speed must be 1-%d", ErrInvalidCommand, MaxSpeed)
	}
	return nil
}

func (h Head) Validate() error {
	if h.Yaw < YawMin || h.Yaw > YawMax {
		return fmt.Errorf("%w: yaw must be %v to %v", ErrInvalidCommand, YawMin, YawMax)
	}
	if h.Roll < RollMin || h.Roll > RollMax {
		return fmt.Errorf("%w: roll must be %v to %v", ErrInvalidCommand, RollMin, RollMax)
	}
	if h.Pitch < PitchMin || h.Pitch > PitchMax {
		return fmt.Errorf("%w: pitch must be %v to %v", ErrInvalidCommand, PitchMin, PitchMax)
	}
	return nil
}

func (r RGB) Validate() error {
	for _, v := range [3]struct {
		name string
		val  int
	}{{"r", r.R}, {"g", r.G}, {"b", r.B}} {
		if v.val < RGBMin || v.val > RGBMax {
			return fmt.Errorf("%w: %s must be %d-%d", ErrInvalidCommand, v.name, RGBMin, RGBMax)
		}
	}
	if r.Mode != "" && !RGBModes[r.Mode] {
		return fmt.Errorf("%w: unknown rgb mode %q", ErrInvalidCommand, r.Mode)
	}
	if r.BPS != 0 && (r.BPS < BPSMin || r.BPS > BPSMax) {
		return fmt.Errorf("%w: bps must be %v-%v", ErrInvalidCommand, BPSMin, BPSMax)
	}
	return nil
}

func (s Speak) Validate() error {
	if _, err := SanitizeText(s.Text); err != nil {
		return err
	}
	return nil
}

func (s Sound) Validate() error {
	if !Sounds[strings.ToLower(strings.TrimSpace(s.Name))] {
		return fmt.Errorf("%w: unknown sound %q", ErrInvalidCommand, s.Name)
	}
	return nil
}

func (Wake) Validate() error  { return nil }
func (Sleep) Validate() error { return nil }
func (Reset) Validate() error { return nil }
func (Ping) Validate() error  { return nil }

func (c Combo) Validate() error {
	if len(c.Steps) == 0 && c.Speak == "" {
		return fmt.Errorf("%w: combo is empty", ErrInvalidCommand)
	}
	if len(c.Steps) > MaxComboSteps {
		return fmt.Errorf("%w: combo exceeds %d steps", ErrInvalidCommand, MaxComboSteps)
	}
	for i, step := range c.Steps {
		if step.Kind() == KindCombo {
			return fmt.Errorf("%w: nested combo at step %d", ErrInvalidCommand, i)
		}
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	if c.Speak != "" {
		if _, err := SanitizeText(c.Speak); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeText trims, strips control characters and bounds speech text.
func SanitizeText(text string) (string, error) {
	text = strings.TrimSpace(controlRe.ReplaceAllString(text, ""))
	if text == "" {
		return "", fmt.Errorf("%w: text is empty", ErrInvalidCommand)
	}
	if len(text) > MaxTextLength {
		return "", fmt.Errorf("%w: text too long (%d > %d)", ErrInvalidCommand, len(text), MaxTextLength)
	}
	return text, nil
}

// ValidateName checks a face/identity name: 1-50 word characters,
// spaces, hyphens or dots.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidCommand, MaxNameLength)
	}
	if !nameRe.MatchString(name) {
		return "", fmt.Errorf("%w: name contains invalid characters", ErrInvalidCommand)
	}
	return name, nil
}
