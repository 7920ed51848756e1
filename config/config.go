// ABOUTME: Configuration management for genetic algorithm run profiles
// ABOUTME: Handles loading/saving TOML config files with fallback to defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// RunProfile holds the tunable knobs for one evolution run. It is
// distinct from the statecodec save-state blob: this is reusable
// configuration, not population state.
type RunProfile struct {
	Size           int     `toml:"size"`
	Elitism        float64 `toml:"elitism"`
	Crossover      float64 `toml:"crossover"`
	Mutation       float64 `toml:"mutation"`
	Optimize       bool    `toml:"optimize"`
	TapeSize       int     `toml:"tape_size"`
	TimeLimitMS    int     `toml:"time_limit_ms"`
	StatementCount int     `toml:"statement_count"`
}

// TimeLimit returns the configured per-genome evaluation budget as a
// time.Duration.
func (p RunProfile) TimeLimit() time.Duration {
	return time.Duration(p.TimeLimitMS) * time.Millisecond
}

// GetConfigPath returns the default config file path: the current
// directory first, then ~/.config/bfevolve/config.toml.
func GetConfigPath() string {
	if _, err := os.Stat("./bfevolve.toml"); err == nil {
		return "./bfevolve.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./bfevolve.toml"
	}

	return filepath.Join(home, ".config", "bfevolve", "config.toml")
}

// LoadConfig loads a run profile from a TOML file. If the file doesn't
// exist, it returns DefaultConfig() without error.
func LoadConfig(path string) (RunProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	var profile RunProfile
	if err := toml.Unmarshal(data, &profile); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return profile, nil
}

// SaveConfig saves a run profile to a TOML file, creating parent
// directories as needed.
func SaveConfig(path string, profile RunProfile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", err)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(profile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfig returns the default run profile, matching spec.md's
// documented default flag values.
func DefaultConfig() RunProfile {
	return RunProfile{
		Size:           128,
		Elitism:        0.5,
		Crossover:      0.5,
		Mutation:       0.5,
		Optimize:       false,
		TapeSize:       30000,
		TimeLimitMS:    50,
		StatementCount: 20,
	}
}
