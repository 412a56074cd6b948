package emotions

import (
	"testing"

	"github.com/noxbotics/go-nox/pkg/command"
)

func TestAllBuiltInEmotionsCompose(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.Names() {
		combo, err := r.Compose(name, "hi")
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(combo.Steps) == 0 {
			t.Errorf("%s: empty combo", name)
		}
		if err := combo.Validate(); err != nil {
			t.Errorf("%s: composed combo invalid: %v", name, err)
		}
		if combo.Speak != "hi" {
			t.Errorf("%s: speak not carried", name)
		}
	}
}

func TestComposeHappy(t *testing.T) {
	r := NewRegistry()
	combo, err := r.Compose("happy", "")
	if err != nil {
		t.Fatal(err)
	}

	// wag_tail then the LED pattern
	if len(combo.Steps) != 2 {
		t.Fatalf("steps: got %d", len(combo.Steps))
	}
	move, ok := combo.Steps[0].(command.Move)
	if !ok || move.Action != "wag_tail" {
		t.Errorf("first step: %+v", combo.Steps[0])
	}
	rgb, ok := combo.Steps[1].(command.RGB)
	if !ok || rgb.G != 255 || rgb.Mode != "breath" {
		t.Errorf("led step: %+v", combo.Steps[1])
	}
}

func TestComposeIncludesHeadPose(t *testing.T) {
	r := NewRegistry()
	combo, err := r.Compose("curious", "")
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, s := range combo.Steps {
		if h, ok := s.(command.Head); ok {
			found = true
			if h.Yaw != 20 || h.Pitch != -10 {
				t.Errorf("head pose: %+v", h)
			}
		}
	}
	if !found {
		t.Error("curious combo has no head step")
	}
}

func TestUnknownEmotionFallsBackToCurious(t *testing.T) {
	r := NewRegistry()
	got, err := r.Compose("bewildered", "")
	if err != nil {
		t.Fatal(err)
	}
	want, err := r.Compose("curious", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Steps) != len(want.Steps) {
		t.Errorf("fallback combo differs: %d vs %d steps", len(got.Steps), len(want.Steps))
	}
}

func TestRegisterCustomEmotion(t *testing.T) {
	r := NewRegistry()
	r.Register(Emotion{
		Name:    "zoomies",
		Actions: []string{"forward", "turn_left"},
		RGB:     command.RGB{R: 255, G: 255, B: 255, Mode: "boom", BPS: 3},
	})

	combo, err := r.Compose("zoomies", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(combo.Steps) != 3 {
		t.Errorf("steps: got %d", len(combo.Steps))
	}
}
