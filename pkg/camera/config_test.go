package camera

import "testing"

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if problems := cfg.Validate(); problems != nil {
		t.Errorf("default config invalid: %v", problems)
	}
	cfg = LowPowerConfig()
	if problems := cfg.Validate(); problems != nil {
		t.Errorf("low power config invalid: %v", problems)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative device", func(c *Config) { c.Device = -1 }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"huge height", func(c *Config) { c.Height = 9000 }},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }},
		{"quality over 100", func(c *Config) { c.Quality = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if problems := cfg.Validate(); len(problems) == 0 {
				t.Error("expected validation problems")
			}
		})
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource([]byte{0xff, 0xd8, 0xff})
	frame, err := src.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(frame) != 3 {
		t.Errorf("frame length: got %d", len(frame))
	}
	if src.Grabs() != 1 {
		t.Errorf("grabs: got %d", src.Grabs())
	}

	src.SetErr(ErrCaptureFailed)
	if _, err := src.Capture(); err == nil {
		t.Error("expected error after SetErr")
	}
}
