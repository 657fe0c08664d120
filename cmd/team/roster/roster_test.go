package roster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultRoster(t *testing.T) {
	r := Default()
	if len(r.Members) != 6 {
		t.Errorf("members = %d, want 6", len(r.Members))
	}
	if len(r.Themes) != 6 {
		t.Errorf("themes = %d, want 6", len(r.Themes))
	}
	for _, m := range r.Members {
		if _, ok := r.Themes[m.ID]; !ok {
			t.Errorf("member %s has no theme", m.ID)
		}
	}
}

func TestThemeFor(t *testing.T) {
	r := Default()
	tests := []struct {
		id       string
		name     string
		start    time.Duration
		duration time.Duration
	}{
		{"tony-stark", "Avengers Theme", 60 * time.Second, 10 * time.Second},
		{"daenerys-targaryen", "Game of Thrones Theme", 46 * time.Second, 15 * time.Second},
		{"rhaenyra-targaryen", "House of the Dragon Theme", 72 * time.Second, 10 * time.Second},
		{"paxton-hall-yoshida", "Never Have I Ever Theme", 0, 15 * time.Second},
		{"someone-new", "AEGIS Theme", 0, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			theme := r.ThemeFor(tt.id)
			if theme.Name != tt.name {
				t.Errorf("name = %q, want %q", theme.Name, tt.name)
			}
			if theme.Start() != tt.start {
				t.Errorf("start = %v, want %v", theme.Start(), tt.start)
			}
			if theme.Length() != tt.duration {
				t.Errorf("length = %v, want %v", theme.Length(), tt.duration)
			}
		})
	}
}

func TestThemePath(t *testing.T) {
	theme := Theme{AudioSrc: "/music/tony.mp3"}
	got := theme.Path("/home/me/.aegis")
	want := filepath.Join("/home/me/.aegis", "music", "tony.mp3")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestMember(t *testing.T) {
	r := Default()
	m, err := r.Member("tony-stark")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "Tony Stark" || m.Position != "Director of Innovation" || m.Category != "Executive Board" {
		t.Errorf("unexpected member %+v", m)
	}
	if _, err := r.Member("nobody"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("error = %v, want ErrUnknownMember", err)
	}
}

func TestByCategory(t *testing.T) {
	r := Default()
	tests := []struct {
		category string
		want     int
	}{
		{"", 6},
		{"All", 6},
		{"Secretariat", 3},
		{"executive board", 3},
		{"Press", 0},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := len(r.ByCategory(tt.category)); got != tt.want {
				t.Errorf("ByCategory(%q) = %d members, want %d", tt.category, got, tt.want)
			}
		})
	}

	cats := r.Categories()
	if len(cats) != 2 || cats[0] != "Secretariat" || cats[1] != "Executive Board" {
		t.Errorf("Categories() = %v", cats)
	}
}

func TestParseValidation(t *testing.T) {
	valid := "default_theme: {audio_src: /music/d.mp3, theme_name: D, start_time: 0, duration: 10}\n"
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"minimal", valid, ""},
		{"negative start", valid + "themes:\n  x: {audio_src: /a.mp3, start_time: -1, duration: 10}\n", "negative"},
		{"zero duration", valid + "themes:\n  x: {audio_src: /a.mp3, start_time: 0, duration: 0}\n", "not positive"},
		{"missing default", "members: []\n", "default theme"},
		{"duplicate member", valid + "members:\n  - {id: a}\n  - {id: a}\n", "duplicate"},
		{"member without id", valid + "members:\n  - {name: A}\n", "no id"},
		{"bad yaml", "members: [", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	if err := os.WriteFile(path, defaultRoster, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Roster, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(r *Roster, err error) {
			if err == nil {
				changes <- r
			}
		})
	}()

	updated := strings.Replace(string(defaultRoster), "Director of Innovation", "Chief Engineer", 1)
	deadline := time.After(5 * time.Second)
	for {
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case r := <-changes:
			m, err := r.Member("tony-stark")
			if err != nil || m.Position != "Chief Engineer" {
				t.Fatalf("reloaded roster has %+v, %v", m, err)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() error = %v", err)
			}
			return
		case <-time.After(200 * time.Millisecond):
			// The watcher may not have been registered before the first write.
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
