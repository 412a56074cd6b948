// Package emotions maps named emotions to body expressions: a set of
// movement actions, an LED pattern and optionally a head pose. The
// brain asks for "happy" and gets a tail wag with green breathing
// LEDs without knowing either exists.
package emotions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/noxbotics/go-nox/pkg/command"
)

// Emotion is one named expression preset.
type Emotion struct {
	Name    string
	Actions []string
	RGB     command.RGB
	Head    *command.Head
}

// Registry holds the known emotions.
type Registry struct {
	mu       sync.RWMutex
	emotions map[string]Emotion
}

// NewRegistry creates a registry preloaded with the built-in emotions.
func NewRegistry() *Registry {
	r := &Registry{emotions: make(map[string]Emotion)}
	for _, e := range builtIn() {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an emotion.
func (r *Registry) Register(e Emotion) {
	r.mu.Lock()
	r.emotions[e.Name] = e
	r.mu.Unlock()
}

// Get looks up an emotion by name.
func (r *Registry) Get(name string) (Emotion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.emotions[name]
	return e, ok
}

// Names returns the registered emotion names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.emotions))
	for name := range r.emotions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compose builds the executable combo for an emotion, optionally with
// a spoken line. Unknown emotions fall back to "curious" so the robot
// always expresses something.
func (r *Registry) Compose(name, text string) (command.Combo, error) {
	e, ok := r.Get(name)
	if !ok {
		e, ok = r.Get("curious")
		if !ok {
			return command.Combo{}, fmt.Errorf("unknown emotion %q and no fallback", name)
		}
	}

	combo := command.Combo{Speak: text}
	for _, action := range e.Actions {
		combo.Steps = append(combo.Steps, command.Move{
			Action: action,
			Steps:  command.DefaultSteps,
			Speed:  command.DefaultSpeed,
		})
	}
	if e.Head != nil {
		combo.Steps = append(combo.Steps, *e.Head)
	}
	combo.Steps = append(combo.Steps, e.RGB)

	if err := combo.Validate(); err != nil {
		return command.Combo{}, fmt.Errorf("emotion %q: %w", e.Name, err)
	}
	return combo, nil
}

// builtIn returns the stock emotion set.
func builtIn() []Emotion {
	return []Emotion{
		{
			Name:    "happy",
			Actions: []string{"wag_tail"},
			RGB:     command.RGB{G: 255, Mode: "breath", BPS: 1.5},
		},
		{
			Name:    "sad",
			Actions: []string{"lie"},
			RGB:     command.RGB{B: 128, Mode: "breath", BPS: 0.3},
		},
		{
			Name: "curious",
			RGB:  command.RGB{G: 255, B: 255, Mode: "breath", BPS: 1.0},
			Head: &command.Head{Yaw: 20, Pitch: -10},
		},
		{
			Name:    "excited",
			Actions: []string{"wag_tail", "bark"},
			RGB:     command.RGB{R: 255, G: 255, Mode: "boom", BPS: 2.0},
		},
		{
			Name:    "alert",
			Actions: []string{"stand"},
			RGB:     command.RGB{R: 255, G: 100, Mode: "boom", BPS: 1.5},
		},
		{
			Name:    "sleepy",
			Actions: []string{"doze_off"},
			RGB:     command.RGB{B: 80, Mode: "breath", BPS: 0.3},
		},
		{
			Name:    "angry",
			Actions: []string{"bark"},
			RGB:     command.RGB{R: 255, Mode: "boom", BPS: 2.0},
		},
		{
			Name:    "love",
			Actions: []string{"wag_tail"},
			RGB:     command.RGB{R: 255, G: 50, B: 150, Mode: "breath", BPS: 1.0},
		},
		{
			Name: "think",
			RGB:  command.RGB{R: 128, B: 255, Mode: "breath", BPS: 0.8},
			Head: &command.Head{Yaw: 15, Roll: -10, Pitch: 10},
		},
	}
}
