package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/huddle/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Overrides applied on top of the config file.
	Viewer    string
	Room      string
	Transport string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "huddle", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "huddle")
}

// LoadConfig reads the config file, applies the command line overrides and
// validates the result.
func (f *Flags) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath, f.DataDir)
	if err != nil {
		return nil, err
	}

	overridden := false
	if f.Viewer != "" {
		cfg.Viewer = f.Viewer
		overridden = true
	}
	if f.Room != "" {
		cfg.Room.Name = f.Room
		overridden = true
	}
	if f.Transport != "" {
		cfg.Transport.Kind = f.Transport
		overridden = true
	}

	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}
	return cfg, nil
}
