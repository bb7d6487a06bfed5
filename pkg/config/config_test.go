package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Pipeline.Normalize || !cfg.Pipeline.SkullStrip || !cfg.Pipeline.Register {
		t.Error("default config must enable the full pre-processing sequence")
	}
	if cfg.Pipeline.SmoothingSigma != 0 {
		t.Errorf("default smoothing sigma = %v, want 0", cfg.Pipeline.SmoothingSigma)
	}
	if cfg.Pipeline.MatchPoints != 7 {
		t.Errorf("default match points = %d, want 7", cfg.Pipeline.MatchPoints)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/brainprep.yaml")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Pipeline.Normalize {
		t.Error("missing file must fall back to defaults")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "brainprep-config-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := DefaultConfig()
	cfg.Pipeline.SmoothingSigma = 1.5
	cfg.Pipeline.Register = false
	cfg.Output.TrackChanges = true

	path := filepath.Join(dir, "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Pipeline.SmoothingSigma != 1.5 {
		t.Errorf("smoothing sigma = %v, want 1.5", loaded.Pipeline.SmoothingSigma)
	}
	if loaded.Pipeline.Register {
		t.Error("register flag not round-tripped")
	}
	if !loaded.Output.TrackChanges {
		t.Error("track-changes flag not round-tripped")
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	dir, err := os.MkdirTemp("", "brainprep-config-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: ["), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
