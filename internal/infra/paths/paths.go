// Package paths picks writable locations for files the client produces.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppDir returns ~/.<app>, or .<app> in the working directory when the home
// directory is unknown.
func AppDir(app string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + app
	}
	return filepath.Join(home, "."+app)
}

// Resolve returns dir/file after creating dir. When dir cannot be created the
// file goes to AppDir(app) instead and fellBack is true.
func Resolve(app, dir, file string) (path string, fellBack bool, err error) {
	if err := os.MkdirAll(dir, 0o755); err == nil {
		return filepath.Join(dir, file), false, nil
	}

	fallback := AppDir(app)
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return "", false, fmt.Errorf("no writable location for %s: %s and %s failed: %w", file, dir, fallback, err)
	}
	return filepath.Join(fallback, file), true, nil
}
