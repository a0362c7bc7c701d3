package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/identity"
	"github.com/colonyops/taskdeck/internal/taskdeck"
)

// Flags holds global flag state shared by all commands. Config and App are
// populated in the Before hook.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Offline    bool

	Config *config.Config
	App    *taskdeck.App
}

// RequireUser returns the authenticated user or a friendly error telling
// the operator to log in.
func (f *Flags) RequireUser(ctx context.Context) (identity.User, error) {
	user, err := f.App.Auth.CurrentUser(ctx)
	if err != nil {
		return identity.User{}, fmt.Errorf("no active session, run `taskdeck login` first: %w", err)
	}
	return user, nil
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "taskdeck", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "taskdeck")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/taskdeck/taskdeck.log
// On Linux: $XDG_STATE_HOME/taskdeck/taskdeck.log (defaults to ~/.local/state/taskdeck/taskdeck.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "taskdeck", "taskdeck.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "taskdeck", "taskdeck.log")
	}

	return filepath.Join(home, ".local", "state", "taskdeck", "taskdeck.log")
}
