// Package config provides configuration management for tally.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds all the path configurations for tally.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/tally)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/tally)
	DataDir string

	// StateDir is the directory for logs and backups (~/.local/state/tally)
	StateDir string
}

// DefaultPaths returns the default paths based on XDG Base Directory spec.
// On Windows, it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir: filepath.Join(appData, "tally"),
			DataDir:   filepath.Join(localAppData, "tally"),
			StateDir:  filepath.Join(localAppData, "tally", "state"),
		}
	}

	// Unix-like systems follow XDG Base Directory spec
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}

	return &Paths{
		ConfigDir: filepath.Join(configHome, "tally"),
		DataDir:   filepath.Join(dataHome, "tally"),
		StateDir:  filepath.Join(stateHome, "tally"),
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite database.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "tally.db")
}

// LogFile returns the default log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.StateDir, "tally.log")
}

// BackupDir returns the directory backups are written to by default.
func (p *Paths) BackupDir() string {
	return filepath.Join(p.StateDir, "backups")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.StateDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
