// Package camera provides the JPEG frame source for the perception
// pipeline, backed by an OpenCV video capture.
package camera

// Config holds the capture parameters.
type Config struct {
	// Device is the V4L2 device index.
	Device int `json:"device"`

	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`

	// Quality is the JPEG encode quality, 1-100.
	Quality int `json:"quality"`
}

// DefaultConfig returns the recommended configuration for a Pi camera.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     1280,
		Height:    720,
		Framerate: 15,
		Quality:   85,
	}
}

// LowPowerConfig returns a reduced configuration for degraded
// operation or constrained hardware.
func LowPowerConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 5
	return cfg
}

// Validate checks the config values, returning a list of problems or
// nil if valid.
func (c *Config) Validate() []string {
	var errors []string
	if c.Device < 0 {
		errors = append(errors, "device must be >= 0")
	}
	if c.Width < 160 || c.Width > 4096 {
		errors = append(errors, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > 2160 {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > 60 {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	return errors
}
