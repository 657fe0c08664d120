package common

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppDir_EnvOverride(t *testing.T) {
	t.Setenv("AEGIS_HOME", "/tmp/aegis-test-home")
	if got := AppDir(); got != "/tmp/aegis-test-home" {
		t.Errorf("AppDir() = %q, want %q", got, "/tmp/aegis-test-home")
	}
	if got := LogPath(); got != filepath.Join("/tmp/aegis-test-home", "aegis.log") {
		t.Errorf("LogPath() = %q", got)
	}
}

func TestRuntimeDir(t *testing.T) {
	tests := []struct {
		name       string
		runtimeDir string
		cacheHome  string
		want       string
	}{
		{"runtime dir set", "/run/user/1000", "/home/x/.cache", "/run/user/1000/aegis"},
		{"falls back to cache", "", "/home/x/.cache", "/home/x/.cache/aegis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_RUNTIME_DIR", tt.runtimeDir)
			t.Setenv("XDG_CACHE_HOME", tt.cacheHome)
			if got := RuntimeDir(); got != tt.want {
				t.Errorf("RuntimeDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetupLogging_WritesLogFile(t *testing.T) {
	t.Setenv("AEGIS_HOME", t.TempDir())
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	SetupLogging(false, true)
	slog.Debug("hidden")
	slog.Warn("kept", "member", "tony")

	SetupLogging(true, true)
	slog.Debug("verbose line")

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line logged without verbose:\n%s", out)
	}
	for _, want := range []string{"msg=kept", "member=tony", "msg=\"verbose line\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
