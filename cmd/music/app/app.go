// Package app assembles the music stack from the user's config: catalog,
// search client, engine loader and session manager.
package app

import (
	"fmt"
	"log/slog"

	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/config"
	"github.com/gigurra/aegis/cmd/common/notify"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/gigurra/aegis/cmd/music/player"
	"github.com/gigurra/aegis/cmd/music/search"
	"github.com/gigurra/aegis/cmd/music/session"
)

// EngineNone disables the primary player; everything goes to the fallback.
const EngineNone = "none"

type Env struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Notifier notify.Notifier
	Clock    clock.Clock
	Speaker  sound.Speaker
}

// Load reads the config and the track catalog.
func Load() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return FromConfig(cfg)
}

func FromConfig(cfg *config.Config) (*Env, error) {
	cat, err := catalog.LoadOrDefault(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return &Env{
		Config:   cfg,
		Catalog:  cat,
		Notifier: notify.New(cfg.Notifications.Desktop),
		Clock:    clock.New(),
		Speaker:  sound.Default,
	}, nil
}

// Searcher returns a search client honoring the configured endpoint.
func (e *Env) Searcher() *search.Client {
	c := search.New(e.Config.YouTube.APIKey, e.Catalog)
	c.BaseURL = e.Config.YouTube.BaseURL
	c.Timeout = e.Config.SearchTimeout()
	return c
}

// Loader returns the shared loader for the configured engine, or nil when
// the primary player is disabled.
func (e *Env) Loader() *player.Loader {
	name := e.Config.Player.Engine
	if name == "" || name == EngineNone {
		return nil
	}
	return player.SharedLoader(player.NewMPVEngine(name), e.Config.EngineTimeout(), e.Clock)
}

// NewPlayer builds an adapter reporting through events.
func (e *Env) NewPlayer(events player.Events) *player.Adapter {
	a := player.NewAdapter(player.AdapterOptions{
		Loader: e.Loader(),
		Socket: e.Config.Player.SocketPath,
		Clock:  e.Clock,
		Fallback: func(ev player.Events) player.Backend {
			return player.NewFallback(e.Speaker, e.Clock, nil, ev)
		},
		Events: events,
	})
	a.SetVolume(e.Config.Player.DefaultVolume)
	return a
}

// NewSession starts a music session. A nil notifier uses the env's.
func (e *Env) NewSession(n notify.Notifier) *session.Manager {
	if n == nil {
		n = e.Notifier
	}
	m := session.New(session.Options{
		Searcher: e.Searcher(),
		NewPlayer: func(ev player.Events) session.Player {
			return e.NewPlayer(ev)
		},
		Catalog:    e.Catalog,
		Notifier:   n,
		MaxResults: e.Config.YouTube.MaxResults,
	})
	slog.Debug("music session started", "session", m.State().SessionID, "engine", e.Config.Player.Engine)
	return m
}
