package catalog

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.Tracks) != 14 {
		t.Errorf("len(Tracks) = %d, want 14", len(c.Tracks))
	}
	if len(c.Surprise) != 8 {
		t.Errorf("len(Surprise) = %d, want 8", len(c.Surprise))
	}
}

func TestMatch(t *testing.T) {
	c := Default()

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"adele", []string{"rYEDA3JcQqw", "YQHsXMglC9A"}},
		{"ADELE", []string{"rYEDA3JcQqw", "YQHsXMglC9A"}},
		{"bohemian", []string{"fJ9rUzIMcZQ"}},
		{"play some queen please", []string{"fJ9rUzIMcZQ"}},
		{"zzz-nothing", nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Match(tt.query)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Match(%q) returned %d tracks, want %d", tt.query, len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Match(%q)[%d].ID = %q, want %q", tt.query, i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMatch_EmptyQueryMatchesAll(t *testing.T) {
	c := Default()
	got := c.Match("")
	if len(got) != len(c.Tracks) {
		t.Fatalf("Match(\"\") returned %d tracks, want %d", len(got), len(c.Tracks))
	}
	got[0].ID = "changed"
	if c.Tracks[0].ID == "changed" {
		t.Error("Match returned the catalog's own slice")
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := (Track{Title: "Hello", Artist: "Adele"}).DisplayTitle(); got != "Hello - Adele" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	if got := (Track{Title: "Untitled"}).DisplayTitle(); got != "Untitled" {
		t.Errorf("DisplayTitle() without artist = %q", got)
	}
}

func TestPick(t *testing.T) {
	c := Default()
	r := rand.New(rand.NewSource(42))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		tr, err := c.Pick(r)
		if err != nil {
			t.Fatalf("Pick() error = %v", err)
		}
		seen[tr.ID] = true
	}
	if len(seen) != len(c.Surprise) {
		t.Errorf("200 picks covered %d of %d tracks", len(seen), len(c.Surprise))
	}

	empty := &Catalog{}
	if _, err := empty.Pick(r); err != ErrEmptyCatalog {
		t.Errorf("Pick() on empty catalog error = %v, want ErrEmptyCatalog", err)
	}
}

func TestParse_SurpriseDefaultsToTracks(t *testing.T) {
	c, err := Parse([]byte("tracks:\n  - {id: a, title: A, artist: X}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Surprise) != 1 || c.Surprise[0].ID != "a" {
		t.Errorf("Surprise = %+v", c.Surprise)
	}
}

func TestParse_RejectsMissingID(t *testing.T) {
	if _, err := Parse([]byte("tracks:\n  - {title: A}\n")); err == nil {
		t.Error("Parse() expected error for track without id")
	}
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault("")
	if err != nil || len(c.Tracks) == 0 {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", c, err)
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("tracks:\n  - {id: x1, title: T, artist: A}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Tracks) != 1 || c.Tracks[0].ID != "x1" {
		t.Errorf("Tracks = %+v", c.Tracks)
	}
}
