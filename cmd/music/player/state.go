// Package player plays background music by video id. The Adapter prefers an
// external media engine (mpv) and drops to a local FallbackPlayer whenever
// the engine cannot be reached or reports an unplayable video.
package player

import (
	"context"
	"fmt"
	"time"
)

// State mirrors the embedded-player state codes.
type State int

const (
	StateUnstarted State = -1
	StateEnded     State = 0
	StatePlaying   State = 1
	StatePaused    State = 2
	StateBuffering State = 3
	StateCued      State = 5
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrorCode is a playback error reported by a backend after it started.
type ErrorCode int

const (
	ErrorInvalidID      ErrorCode = 2
	ErrorEngine         ErrorCode = 5
	ErrorNotFound       ErrorCode = 100
	ErrorNotEmbeddable  ErrorCode = 101
	ErrorNotEmbeddable2 ErrorCode = 150
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorInvalidID:
		return "Invalid video ID"
	case ErrorEngine:
		return "Media engine error"
	case ErrorNotFound:
		return "Video not found or private"
	case ErrorNotEmbeddable, ErrorNotEmbeddable2:
		return "Video not allowed in embedded players"
	}
	return "Unknown player error"
}

// Fallback reports whether the error means the video can never play on the
// primary engine.
func (c ErrorCode) Fallback() bool {
	switch c {
	case ErrorInvalidID, ErrorNotFound, ErrorNotEmbeddable, ErrorNotEmbeddable2:
		return true
	}
	return false
}

// Events receives backend notifications. Nil fields are skipped. Callbacks
// are never invoked with backend locks held.
type Events struct {
	OnState func(State)
	OnTime  func(time.Duration)
	OnError func(ErrorCode)
}

func (e Events) emitState(s State) {
	if e.OnState != nil {
		e.OnState(s)
	}
}

func (e Events) emitTime(d time.Duration) {
	if e.OnTime != nil {
		e.OnTime(d)
	}
}

func (e Events) emitError(c ErrorCode) {
	if e.OnError != nil {
		e.OnError(c)
	}
}

// Backend is anything that can play one video at a time.
type Backend interface {
	Load(ctx context.Context, id string, autoplay bool) error
	Play()
	Pause()
	Stop()
	// SetVolume takes a level in [0,1].
	SetVolume(level float64)
	CurrentTime() time.Duration
	Duration() time.Duration
	State() State
	// Destroy releases everything. Safe to call more than once.
	Destroy()
}
