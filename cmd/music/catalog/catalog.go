// Package catalog holds the curated track list used for offline search
// results and random picks.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrEmptyCatalog = errors.New("catalog has no tracks")

//go:embed catalog.yaml
var defaultCatalog []byte

// Track is one known video.
type Track struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Artist string `yaml:"artist"`
}

// DisplayTitle formats the track as "<title> - <artist>".
func (t Track) DisplayTitle() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " - " + t.Artist
}

// Catalog is the set of tracks used when no live search is available.
type Catalog struct {
	Tracks   []Track `yaml:"tracks"`
	Surprise []Track `yaml:"surprise"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path when set, otherwise returns the embedded catalog.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes a YAML catalog. An empty surprise list falls back to the
// full track list.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	for i, t := range c.Tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("track %d has no id", i)
		}
	}
	if len(c.Surprise) == 0 {
		c.Surprise = c.Tracks
	}
	return &c, nil
}

// Match returns tracks whose title or artist contains the query, or that the
// query itself contains, case-insensitively, in catalog order. The empty
// query matches every track.
func (c *Catalog) Match(query string) []Track {
	if query == "" {
		return slices.Clone(c.Tracks)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return lo.Filter(c.Tracks, func(t Track, _ int) bool {
		title := strings.ToLower(t.Title)
		artist := strings.ToLower(t.Artist)
		return strings.Contains(title, q) ||
			strings.Contains(artist, q) ||
			(title != "" && strings.Contains(q, title)) ||
			(artist != "" && strings.Contains(q, artist))
	})
}

// Pick returns a uniformly random track from the surprise list.
func (c *Catalog) Pick(r *rand.Rand) (Track, error) {
	if len(c.Surprise) == 0 {
		return Track{}, ErrEmptyCatalog
	}
	return c.Surprise[r.Intn(len(c.Surprise))], nil
}

// ThumbnailURL is the standard medium thumbnail for a video id.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/mqdefault.jpg"
}

// WatchURL is the public page for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
