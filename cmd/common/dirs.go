package common

import (
	"os"
	"path/filepath"
)

// AppDir returns the aegis home directory (~/.aegis). It holds the config
// file, the log file and the onboarding flags.
func AppDir() string {
	if dir := os.Getenv("AEGIS_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aegis")
}

func CacheDir() string {
	return filepath.Join(cacheHome(), "aegis")
}

// RuntimeDir is where per-process sockets live. Falls back to the cache dir
// when XDG_RUNTIME_DIR is not set.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "aegis")
	}
	return CacheDir()
}

// https://specifications.freedesktop.org/basedir/latest/#variables
func cacheHome() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".cache")
	}
	return dir
}
