// Package roster holds the conference team and the theme clip played for
// each member.
package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// AllCategories selects every member in ByCategory.
const AllCategories = "All"

var ErrUnknownMember = errors.New("unknown team member")

//go:embed roster.yaml
var defaultRoster []byte

type Member struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
	Category string `yaml:"category"`
	Bio      string `yaml:"bio"`
	FunFact  string `yaml:"fun_fact"`
}

// Theme is a clip of a local audio file. AudioSrc is rooted at the music
// directory, e.g. /music/tony.mp3.
type Theme struct {
	AudioSrc    string  `yaml:"audio_src"`
	Name        string  `yaml:"theme_name"`
	Description string  `yaml:"description"`
	StartTime   float64 `yaml:"start_time"`
	Duration    float64 `yaml:"duration"`
}

func (t Theme) Start() time.Duration {
	return time.Duration(t.StartTime * float64(time.Second))
}

func (t Theme) Length() time.Duration {
	return time.Duration(t.Duration * float64(time.Second))
}

// Path resolves AudioSrc against musicDir.
func (t Theme) Path(musicDir string) string {
	return filepath.Join(musicDir, filepath.FromSlash(strings.TrimPrefix(t.AudioSrc, "/")))
}

func (t Theme) validate() error {
	switch {
	case t.AudioSrc == "":
		return errors.New("no audio_src")
	case t.StartTime < 0:
		return fmt.Errorf("start_time %v is negative", t.StartTime)
	case t.Duration <= 0:
		return fmt.Errorf("duration %v is not positive", t.Duration)
	}
	return nil
}

type Roster struct {
	Members      []Member         `yaml:"members"`
	Themes       map[string]Theme `yaml:"themes"`
	DefaultTheme Theme            `yaml:"default_theme"`
}

// Default returns the embedded roster.
func Default() *Roster {
	r, err := Parse(defaultRoster)
	if err != nil {
		panic(fmt.Sprintf("embedded roster is invalid: %v", err))
	}
	return r
}

func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	return r, nil
}

// LoadOrDefault loads path when set, otherwise returns the embedded roster.
func LoadOrDefault(path string) (*Roster, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func Parse(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks member ids and theme timings.
func (r *Roster) Validate() error {
	seen := map[string]bool{}
	for i, m := range r.Members {
		if m.ID == "" {
			return fmt.Errorf("member %d has no id", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate member id %q", m.ID)
		}
		seen[m.ID] = true
	}
	for id, t := range r.Themes {
		if err := t.validate(); err != nil {
			return fmt.Errorf("theme for %s: %w", id, err)
		}
	}
	if err := r.DefaultTheme.validate(); err != nil {
		return fmt.Errorf("default theme: %w", err)
	}
	return nil
}

func (r *Roster) Member(id string) (Member, error) {
	m, ok := lo.Find(r.Members, func(m Member) bool { return m.ID == id })
	if !ok {
		return Member{}, fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	return m, nil
}

// ThemeFor returns the member's theme, or the default theme for unmapped ids.
func (r *Roster) ThemeFor(id string) Theme {
	if t, ok := r.Themes[id]; ok {
		return t
	}
	return r.DefaultTheme
}

// ByCategory filters members, keeping roster order. "" and AllCategories
// match everyone.
func (r *Roster) ByCategory(category string) []Member {
	if category == "" || strings.EqualFold(category, AllCategories) {
		return r.Members
	}
	return lo.Filter(r.Members, func(m Member, _ int) bool {
		return strings.EqualFold(m.Category, category)
	})
}

// Categories lists the distinct categories in roster order.
func (r *Roster) Categories() []string {
	return lo.Uniq(lo.Map(r.Members, func(m Member, _ int) string { return m.Category }))
}
