package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.ListenPort != 8888 {
		t.Errorf("ListenPort: got %d, want 8888", cfg.ListenPort)
	}
	if cfg.FaceThreshold != 0.4 {
		t.Errorf("FaceThreshold: got %v, want 0.4", cfg.FaceThreshold)
	}
	if cfg.ListenAddr() != "0.0.0.0:8888" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr())
	}
	if cfg.DaemonAddr() != "localhost:9999" {
		t.Errorf("DaemonAddr: got %q", cfg.DaemonAddr())
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.yaml")
	data := []byte("listen_port: 7000\nface_threshold: 0.55\nmemory_backend: sqlite\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 7000 {
		t.Errorf("ListenPort: got %d, want 7000", cfg.ListenPort)
	}
	if cfg.FaceThreshold != 0.55 {
		t.Errorf("FaceThreshold: got %v, want 0.55", cfg.FaceThreshold)
	}
	if cfg.MemoryBackend != "sqlite" {
		t.Errorf("MemoryBackend: got %q, want sqlite", cfg.MemoryBackend)
	}
	// Untouched fields keep defaults
	if cfg.DaemonPort != 9999 {
		t.Errorf("DaemonPort: got %d, want default 9999", cfg.DaemonPort)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 8888 {
		t.Errorf("ListenPort: got %d, want 8888", cfg.ListenPort)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_PORT", "9001")
	t.Setenv("FACE_THRESHOLD", "0.7")
	t.Setenv("PROBE_INTERVAL", "2s")
	t.Setenv("NOX_API_TOKEN", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 9001 {
		t.Errorf("ListenPort: got %d, want 9001", cfg.ListenPort)
	}
	if cfg.FaceThreshold != 0.7 {
		t.Errorf("FaceThreshold: got %v, want 0.7", cfg.FaceThreshold)
	}
	if cfg.ProbeInterval != 2*time.Second {
		t.Errorf("ProbeInterval: got %v, want 2s", cfg.ProbeInterval)
	}
	if cfg.APIToken != "secret" {
		t.Errorf("APIToken: got %q", cfg.APIToken)
	}
}
