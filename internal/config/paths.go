package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// HomeEnv overrides the configuration root directory
	HomeEnv = "WAYPOINT_HOME"

	appDirName       = "waypoint"
	mappingsFileName = "mappings.json"
	historyFileName  = "history.json"
	configFileName   = "config.yaml"
	lockFileName     = ".lock"
)

// Paths holds the file locations derived from a configuration root
type Paths struct {
	Root     string // ~/.config/waypoint
	Mappings string // ~/.config/waypoint/mappings.json
	History  string // ~/.config/waypoint/history.json
	Config   string // ~/.config/waypoint/config.yaml
	Lock     string // ~/.config/waypoint/.lock
}

// ResolvePaths returns the file locations under root
func ResolvePaths(root string) (*Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config root %q: %w", root, err)
	}
	return &Paths{
		Root:     abs,
		Mappings: filepath.Join(abs, mappingsFileName),
		History:  filepath.Join(abs, historyFileName),
		Config:   filepath.Join(abs, configFileName),
		Lock:     filepath.Join(abs, lockFileName),
	}, nil
}

// DefaultRoot returns $WAYPOINT_HOME, or the waypoint directory under the
// user's configuration directory
func DefaultRoot() (string, error) {
	if root := os.Getenv(HomeEnv); root != "" {
		return root, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// EnsureRoot creates the root directory if it doesn't exist
func (p *Paths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0700); err != nil {
		return fmt.Errorf("failed to create config root %s: %w", p.Root, err)
	}
	return nil
}
