// Package session is the background-music controller behind the music
// widget and the music commands: search, pick, play, pause and resume,
// with one player alive at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gigurra/aegis/cmd/common/notify"
	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/gigurra/aegis/cmd/music/player"
	"github.com/gigurra/aegis/cmd/music/search"
	"github.com/google/uuid"
)

const (
	NoticeTitle = "Music"

	MsgNoSongs      = "No songs found. Please try a different search term."
	MsgPlayFailed   = "Failed to play the selected song. Please try another one."
	MsgRandomFailed = "Failed to play random song. Please try again."

	// randomDuration is the display length given to surprise picks.
	randomDuration = "3:32"
)

var (
	ErrPlayFailed = errors.New("failed to play song")
	ErrClosed     = errors.New("music session closed")
)

// Player is the part of player.Backend the session drives.
type Player interface {
	Load(ctx context.Context, id string, autoplay bool) error
	Play()
	Pause()
	Destroy()
}

// PlayerFactory creates a player that reports through events.
type PlayerFactory func(events player.Events) Player

// Searcher finds candidate tracks. It never fails; a bad network yields
// offline results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []search.Result
}

// State is a snapshot of the session.
type State struct {
	SessionID     string
	IsPlaying     bool
	IsPaused      bool
	IsSearching   bool
	CurrentSong   *search.Result
	SearchResults []search.Result
	ShowSelection bool
	Position      time.Duration
}

type Options struct {
	Searcher   Searcher
	NewPlayer  PlayerFactory
	Catalog    *catalog.Catalog
	Notifier   notify.Notifier
	Rand       *rand.Rand
	MaxResults int
}

// Manager owns one background-music session.
type Manager struct {
	searcher   Searcher
	newPlayer  PlayerFactory
	catalog    *catalog.Catalog
	notifier   notify.Notifier
	maxResults int
	log        *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand

	mu      sync.Mutex
	state   State
	player  Player
	gen     uint64
	loadGen uint64 // selection that owns IsSearching
	closed  bool
	subs    map[int]func(State)
	nextSub int
}

func New(opts Options) *Manager {
	id := uuid.NewString()
	m := &Manager{
		searcher:   opts.Searcher,
		newPlayer:  opts.NewPlayer,
		catalog:    opts.Catalog,
		notifier:   opts.Notifier,
		maxResults: opts.MaxResults,
		rand:       opts.Rand,
		log:        slog.With("session", id),
		state:      State{SessionID: id},
		subs:       map[int]func(State){},
	}
	if m.catalog == nil {
		m.catalog = catalog.Default()
	}
	if m.notifier == nil {
		m.notifier = notify.Stderr{}
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.maxResults <= 0 {
		m.maxResults = search.DefaultMaxResults
	}
	return m
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.CurrentSong != nil {
		song := *s.CurrentSong
		s.CurrentSong = &song
	}
	s.SearchResults = append([]search.Result(nil), s.SearchResults...)
	return s
}

// Subscribe calls fn with every new state until the returned func is called.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// update mutates state under the lock and then tells subscribers.
func (m *Manager) update(f func(s *State)) {
	m.mu.Lock()
	f(&m.state)
	snap, subs := m.publishLocked()
	m.mu.Unlock()
	deliver(snap, subs)
}

func (m *Manager) publishLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return m.snapshotLocked(), subs
}

func deliver(s State, subs []func(State)) {
	for _, fn := range subs {
		fn(s)
	}
}

func (m *Manager) notice(msg string) {
	m.notifier.Notice(NoticeTitle, msg)
}

// SearchAndPlay looks up a song and opens the selection with the results.
// The searching flag is always cleared when it returns.
func (m *Manager) SearchAndPlay(ctx context.Context, query, artist string) {
	if artist != "" {
		query = artist + " " + query
	}

	m.update(func(s *State) { s.IsSearching = true })
	defer m.update(func(s *State) { s.IsSearching = false })

	m.log.Debug("searching", "query", query)
	results := m.searcher.Search(ctx, query, m.maxResults)
	if len(results) == 0 {
		m.log.Info("no search results", "query", query)
		m.notice(MsgNoSongs)
		return
	}

	m.log.Debug("search results", "query", query, "count", len(results))
	m.update(func(s *State) {
		s.SearchResults = results
		s.ShowSelection = true
	})
}

// SelectAndPlay stops whatever plays and starts result. On failure the
// session is left idle and the user is told.
func (m *Manager) SelectAndPlay(ctx context.Context, result search.Result) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.gen++
	gen := m.gen
	m.loadGen = gen
	old := m.player
	m.player = nil
	m.state.IsSearching = true
	m.state.IsPlaying = false
	m.state.IsPaused = false
	song := result
	m.state.CurrentSong = &song
	snap, subs := m.publishLocked()
	m.mu.Unlock()

	if old != nil {
		m.log.Debug("stopping current music")
		old.Destroy()
	}
	deliver(snap, subs)

	m.log.Info("playing", "id", result.ID, "title", result.Title)
	p := m.newPlayer(m.playerEvents(gen))

	m.mu.Lock()
	if m.gen != gen {
		if m.loadGen == gen {
			m.state.IsSearching = false
		}
		snap, subs := m.publishLocked()
		m.mu.Unlock()
		p.Destroy()
		deliver(snap, subs)
		return nil
	}
	m.player = p
	m.mu.Unlock()

	err := p.Load(ctx, result.ID, true)

	m.mu.Lock()
	if m.gen != gen {
		// A newer selection or a stop took over the player.
		var snap State
		var subs []func(State)
		if m.loadGen == gen {
			m.state.IsSearching = false
			snap, subs = m.publishLocked()
		}
		m.mu.Unlock()
		deliver(snap, subs)
		return nil
	}
	m.state.IsSearching = false
	if err != nil {
		m.player = nil
		m.state.IsPlaying = false
		m.state.CurrentSong = nil
		m.state.ShowSelection = false
	} else {
		m.state.IsPlaying = true
		m.state.IsPaused = false
		m.state.Position = 0
		m.state.ShowSelection = false
	}
	snap, subs = m.publishLocked()
	m.mu.Unlock()

	if err != nil {
		p.Destroy()
		m.log.Error("failed to play song", "id", result.ID, "error", err)
		deliver(snap, subs)
		m.notice(MsgPlayFailed)
		return fmt.Errorf("%w %s: %w", ErrPlayFailed, result.ID, err)
	}
	deliver(snap, subs)
	return nil
}

// PlayRandomSong plays a uniformly random pick from the surprise list.
func (m *Manager) PlayRandomSong(ctx context.Context) error {
	m.randMu.Lock()
	track, err := m.catalog.Pick(m.rand)
	m.randMu.Unlock()
	if err != nil {
		m.log.Error("failed to pick random song", "error", err)
		m.notice(MsgRandomFailed)
		return err
	}
	return m.SelectAndPlay(ctx, search.FromTrack(track, randomDuration))
}

// StopMusic tears the player down and clears what is playing.
func (m *Manager) StopMusic() {
	m.mu.Lock()
	m.gen++
	old := m.player
	m.player = nil
	m.state.IsPlaying = false
	m.state.IsPaused = false
	m.state.CurrentSong = nil
	m.state.Position = 0
	snap, subs := m.publishLocked()
	m.mu.Unlock()

	if old != nil {
		m.log.Debug("stopping music")
		old.Destroy()
	}
	deliver(snap, subs)
}

// PauseMusic pauses only when something is playing.
func (m *Manager) PauseMusic() {
	m.mu.Lock()
	p := m.player
	if p == nil || !m.state.IsPlaying {
		m.mu.Unlock()
		return
	}
	m.state.IsPaused = true
	snap, subs := m.publishLocked()
	m.mu.Unlock()

	p.Pause()
	deliver(snap, subs)
}

// ResumeMusic resumes only when paused.
func (m *Manager) ResumeMusic() {
	m.mu.Lock()
	p := m.player
	if p == nil || !m.state.IsPaused {
		m.mu.Unlock()
		return
	}
	m.state.IsPaused = false
	snap, subs := m.publishLocked()
	m.mu.Unlock()

	p.Play()
	deliver(snap, subs)
}

// CloseSongSelection hides the selection and drops the pending results.
func (m *Manager) CloseSongSelection() {
	m.update(func(s *State) {
		s.ShowSelection = false
		s.SearchResults = nil
	})
}

// Close stops playback and ends the session. Later selections fail.
func (m *Manager) Close() {
	m.StopMusic()
	m.mu.Lock()
	m.closed = true
	m.state.ShowSelection = false
	m.state.SearchResults = nil
	m.subs = map[int]func(State){}
	m.mu.Unlock()
}

// playerEvents maps player callbacks to session state, ignoring players
// that were replaced.
func (m *Manager) playerEvents(gen uint64) player.Events {
	apply := func(f func(s *State)) {
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		f(&m.state)
		snap, subs := m.publishLocked()
		m.mu.Unlock()
		deliver(snap, subs)
	}
	return player.Events{
		OnState: func(st player.State) {
			m.log.Debug("player state changed", "state", st)
			switch st {
			case player.StatePlaying:
				apply(func(s *State) {
					s.IsPlaying = true
					s.IsPaused = false
				})
			case player.StatePaused:
				apply(func(s *State) { s.IsPaused = true })
			case player.StateEnded:
				apply(func(s *State) {
					s.IsPlaying = false
					s.IsPaused = false
				})
			}
		},
		OnTime: func(d time.Duration) {
			if d < 0 {
				return
			}
			apply(func(s *State) { s.Position = d })
		},
		OnError: func(code player.ErrorCode) {
			m.log.Warn("player error", "code", int(code), "message", code.String())
		},
	}
}
