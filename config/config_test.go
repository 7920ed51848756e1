// ABOUTME: Tests for run-profile load/save functionality
// ABOUTME: Validates TOML parsing and default config fallback behavior

package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Size != 128 {
		t.Errorf("Expected Size 128, got %d", cfg.Size)
	}
	if cfg.TimeLimit().Milliseconds() != 50 {
		t.Errorf("Expected TimeLimit 50ms, got %v", cfg.TimeLimit())
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpfile, err := os.CreateTemp(t.TempDir(), "bfevolve-*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	tmpfile.Close()

	cfg := DefaultConfig()
	cfg.Size = 256
	cfg.Optimize = true
	if err := SaveConfig(tmpfile.Name(), cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(tmpfile.Name())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Size != cfg.Size {
		t.Errorf("Size mismatch: got %d, want %d", loaded.Size, cfg.Size)
	}
	if loaded.Optimize != cfg.Optimize {
		t.Errorf("Optimize mismatch: got %v, want %v", loaded.Optimize, cfg.Optimize)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	if err != nil {
		t.Errorf("Expected no error for non-existent file, got: %v", err)
	}

	defaults := DefaultConfig()
	if cfg.Size != defaults.Size {
		t.Errorf("Expected default Size %d, got %d", defaults.Size, cfg.Size)
	}
}
