package config

import (
	"os"
	"path/filepath"
)

// GlobalDir returns the per-user configuration directory (~/.builder). It is
// a variable so tests can point it elsewhere.
var GlobalDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".builder"), nil
}

// CrashDir returns where crash reports are kept, falling back to a local
// directory when the home directory cannot be resolved.
func CrashDir() string {
	dir, err := GlobalDir()
	if err != nil {
		return filepath.Join(".builder", "crash")
	}
	return filepath.Join(dir, "crash")
}
