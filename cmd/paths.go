package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

const appName = "secakit"

// defaultDataDir follows the XDG Base Directory specification on every
// platform xdg supports ($XDG_DATA_HOME/secakit on Linux).
func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// resolveDataDir returns an absolute, existing data directory.
func resolveDataDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		dir = defaultDataDir()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}
