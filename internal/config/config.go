// Package config provides configuration for the body bridge.
//
// Settings come from three layers, lowest priority first: built-in
// defaults, an optional YAML file, and environment variables. A .env
// file next to the binary is loaded before the environment is read.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all body bridge settings.
type Config struct {
	// Bridge server
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	// Security
	APIToken   string `yaml:"api_token"`
	RateLimit  int    `yaml:"rate_limit"`
	RateWindow int    `yaml:"rate_window_s"`

	// Hardware daemon (low-level servo controller)
	DaemonHost string `yaml:"daemon_host"`
	DaemonPort int    `yaml:"daemon_port"`

	// Secondary (fallback) transport
	FallbackPort int `yaml:"fallback_port"`

	// Remote brain
	BrainURL      string        `yaml:"brain_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeWindow   time.Duration `yaml:"probe_window"`

	// Camera
	CameraDevice int `yaml:"camera_device"`
	CameraWidth  int `yaml:"camera_width"`
	CameraHeight int `yaml:"camera_height"`

	// Perception
	CaptureInterval time.Duration `yaml:"capture_interval"`
	FaceThreshold   float64       `yaml:"face_threshold"`
	ObjectThreshold float64       `yaml:"object_threshold"`
	ModelDir        string        `yaml:"model_dir"`

	// Memory
	MemoryPath    string `yaml:"memory_path"`
	MemoryBackend string `yaml:"memory_backend"` // "json" or "sqlite"

	// Battery thresholds (2S LiPo)
	BatteryLow      float64 `yaml:"battery_low"`
	BatteryCritical float64 `yaml:"battery_critical"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		ListenHost:      "0.0.0.0",
		ListenPort:      8888,
		RateLimit:       60,
		RateWindow:      60,
		DaemonHost:      "localhost",
		DaemonPort:      9999,
		FallbackPort:    9998,
		BrainURL:        "http://brain.local:18789",
		ProbeInterval:   5 * time.Second,
		ProbeWindow:     20 * time.Second,
		CameraDevice:    0,
		CameraWidth:     640,
		CameraHeight:    480,
		CaptureInterval: 500 * time.Millisecond,
		FaceThreshold:   0.4,
		ObjectThreshold: 0.5,
		ModelDir:        "models",
		MemoryPath:      "data/memory.json",
		MemoryBackend:   "json",
		BatteryLow:      6.8,
		BatteryCritical: 6.2,
		LogLevel:        "info",
	}
}

// Load builds the config from defaults, an optional YAML file and the
// environment. path may be empty.
func Load(path string) (Config, error) {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr("BRIDGE_HOST", &c.ListenHost)
	envInt("BRIDGE_PORT", &c.ListenPort)
	envStr("NOX_API_TOKEN", &c.APIToken)
	envInt("RATE_LIMIT", &c.RateLimit)
	envInt("RATE_WINDOW", &c.RateWindow)
	envStr("DAEMON_HOST", &c.DaemonHost)
	envInt("DAEMON_PORT", &c.DaemonPort)
	envInt("FALLBACK_PORT", &c.FallbackPort)
	envStr("BRAIN_URL", &c.BrainURL)
	envDur("PROBE_INTERVAL", &c.ProbeInterval)
	envDur("PROBE_WINDOW", &c.ProbeWindow)
	envInt("CAMERA_DEVICE", &c.CameraDevice)
	envInt("CAMERA_WIDTH", &c.CameraWidth)
	envInt("CAMERA_HEIGHT", &c.CameraHeight)
	envDur("CAPTURE_INTERVAL", &c.CaptureInterval)
	envFloat("FACE_THRESHOLD", &c.FaceThreshold)
	envFloat("OBJECT_THRESHOLD", &c.ObjectThreshold)
	envStr("MODEL_DIR", &c.ModelDir)
	envStr("MEMORY_PATH", &c.MemoryPath)
	envStr("MEMORY_BACKEND", &c.MemoryBackend)
	envFloat("BATTERY_LOW", &c.BatteryLow)
	envFloat("BATTERY_CRITICAL", &c.BatteryCritical)
	envStr("LOG_LEVEL", &c.LogLevel)
}

// ListenAddr returns the bridge server listen address.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// DaemonAddr returns the hardware daemon TCP address.
func (c Config) DaemonAddr() string {
	return fmt.Sprintf("%s:%d", c.DaemonHost, c.DaemonPort)
}

// FallbackAddr returns the secondary transport listen address.
func (c Config) FallbackAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.FallbackPort)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDur(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
