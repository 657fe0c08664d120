package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GiGurra/cmder"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gigurra/aegis/cmd/music/catalog"
)

var (
	ErrInvalidVideoID = errors.New("invalid video id")
	errNotConnected   = errors.New("mpv not connected")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// MPVEngine plays videos with an mpv process controlled over its JSON IPC
// socket. mpv resolves the watch URL itself through its ytdl hook.
type MPVEngine struct {
	Binary      string
	ExtraArgs   []string
	DialTimeout time.Duration

	// spawn starts the process; replaced in tests.
	spawn func(binary string, args []string) (process, error)
}

type process interface {
	Wait() error
	Kill() error
}

func NewMPVEngine(binary string) *MPVEngine {
	if binary == "" {
		binary = "mpv"
	}
	return &MPVEngine{Binary: binary, DialTimeout: 3 * time.Second}
}

func (e *MPVEngine) Name() string {
	return "mpv"
}

// Probe runs "mpv --version".
func (e *MPVEngine) Probe(ctx context.Context) error {
	res := cmder.New(e.Binary, "--version").
		WithAttemptTimeout(DefaultEngineTimeout).
		Run(ctx)
	if res.Err != nil {
		return fmt.Errorf("running %s --version: %w", e.Binary, res.Err)
	}
	if !strings.HasPrefix(strings.TrimSpace(res.StdOut), "mpv") {
		return fmt.Errorf("%s does not look like mpv: %q", e.Binary, firstLine(res.StdOut))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func (e *MPVEngine) NewBackend(socket string, events Events) (Backend, error) {
	if socket == "" {
		return nil, errors.New("mpv needs an ipc socket path")
	}
	spawn := e.spawn
	if spawn == nil {
		spawn = startProcess
	}
	dial := e.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	return &mpvPlayer{
		binary:      e.Binary,
		extraArgs:   e.ExtraArgs,
		dialTimeout: dial,
		spawn:       spawn,
		socket:      socket,
		events:      events,
		volume:      1,
		state:       StateUnstarted,
	}, nil
}

func startProcess(binary string, args []string) (process, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Wait() error { return p.cmd.Wait() }
func (p execProcess) Kill() error { return p.cmd.Process.Kill() }

// mpvPlayer is one mpv process playing one video.
type mpvPlayer struct {
	binary      string
	extraArgs   []string
	dialTimeout time.Duration
	spawn       func(string, []string) (process, error)
	socket      string
	events      Events

	writeMu sync.Mutex
	conn    net.Conn
	reqID   int

	mu        sync.Mutex
	proc      process
	exited    chan struct{}
	state     State
	loaded    bool
	paused    bool
	position  time.Duration
	duration  time.Duration
	volume    float64
	destroyed bool
}

// ipcEvent is every field we read from mpv messages.
type ipcEvent struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	Error     string          `json:"error"`
	RequestID int             `json:"request_id"`
}

func (p *mpvPlayer) Load(ctx context.Context, id string, autoplay bool) error {
	if !videoIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidVideoID, id)
	}

	if err := os.Remove(p.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket %s: %w", p.socket, err)
	}

	p.mu.Lock()
	volume := p.volume
	p.mu.Unlock()

	args := []string{
		"--no-video",
		"--no-terminal",
		"--idle=no",
		"--input-ipc-server=" + p.socket,
		"--volume=" + strconv.Itoa(int(volume*100)),
	}
	if !autoplay {
		args = append(args, "--pause")
	}
	args = append(args, p.extraArgs...)
	args = append(args, catalog.WatchURL(id))

	proc, err := p.spawn(p.binary, args)
	if err != nil {
		return fmt.Errorf("starting %s: %w", p.binary, err)
	}

	exited := make(chan struct{})
	p.mu.Lock()
	p.proc = proc
	p.exited = exited
	p.paused = !autoplay
	p.state = StateBuffering
	p.mu.Unlock()
	go p.wait(proc, exited)

	conn, err := p.dial(ctx, exited)
	if err != nil {
		p.Destroy()
		return err
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		conn.Close()
		return errors.New("mpv player destroyed while loading")
	}
	p.mu.Unlock()

	p.writeMu.Lock()
	p.conn = conn
	p.writeMu.Unlock()

	go p.read(conn)

	for i, prop := range []string{"pause", "eof-reached", "time-pos", "duration", "idle-active"} {
		if err := p.command("observe_property", i+1, prop); err != nil {
			p.Destroy()
			return fmt.Errorf("observing %s: %w", prop, err)
		}
	}
	slog.Debug("mpv player started", "id", id, "socket", p.socket, "autoplay", autoplay)
	return nil
}

func (p *mpvPlayer) dial(ctx context.Context, exited <-chan struct{}) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", p.socket)
		if err == nil {
			return conn, nil
		}
		select {
		case <-exited:
			return nil, fmt.Errorf("mpv exited before opening %s", p.socket)
		case <-ctx.Done():
			return nil, fmt.Errorf("connecting to mpv at %s: %w", p.socket, ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (p *mpvPlayer) wait(proc process, exited chan struct{}) {
	err := proc.Wait()
	close(exited)

	p.mu.Lock()
	unexpected := !p.destroyed && p.state != StateEnded
	if unexpected {
		p.state = StateEnded
	}
	p.mu.Unlock()

	if unexpected {
		slog.Warn("mpv exited unexpectedly", "socket", p.socket, "error", err)
		p.events.emitError(ErrorEngine)
		p.events.emitState(StateEnded)
	}
}

func (p *mpvPlayer) read(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev ipcEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			slog.Debug("ignoring malformed mpv message", "error", err)
			continue
		}
		p.handle(ev)
	}
}

func (p *mpvPlayer) handle(ev ipcEvent) {
	if ev.Event == "" {
		if ev.Error != "" && ev.Error != "success" {
			slog.Debug("mpv command failed", "request_id", ev.RequestID, "error", ev.Error)
		}
		return
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}

	var (
		newState State
		notify   bool
		errCode  ErrorCode
	)
	switch ev.Event {
	case "start-file":
		p.state, newState, notify = StateBuffering, StateBuffering, true
	case "file-loaded":
		p.loaded = true
		newState = StatePlaying
		if p.paused {
			newState = StateCued
		}
		p.state, notify = newState, true
	case "end-file":
		notify = p.state != StateEnded || ev.Reason == "error"
		p.state, newState = StateEnded, StateEnded
		if ev.Reason == "error" {
			errCode = endFileError(ev.FileError)
		}
	case "property-change":
		newState, notify = p.propertyChangeLocked(ev)
	}
	p.mu.Unlock()

	if errCode != 0 {
		slog.Warn("mpv could not play video", "error", ev.FileError, "code", int(errCode))
		p.events.emitError(errCode)
	}
	if notify {
		p.events.emitState(newState)
	}
}

func (p *mpvPlayer) propertyChangeLocked(ev ipcEvent) (State, bool) {
	switch ev.Name {
	case "pause":
		var paused bool
		if json.Unmarshal(ev.Data, &paused) != nil {
			return 0, false
		}
		p.paused = paused
		if !p.loaded || p.state == StateEnded {
			return 0, false
		}
		p.state = StatePlaying
		if paused {
			p.state = StatePaused
		}
		return p.state, true
	case "eof-reached":
		var eof bool
		if json.Unmarshal(ev.Data, &eof) == nil && eof && p.state != StateEnded {
			p.state = StateEnded
			return StateEnded, true
		}
	case "time-pos":
		var secs float64
		if json.Unmarshal(ev.Data, &secs) == nil {
			p.position = seconds(secs)
		}
	case "duration":
		var secs float64
		if json.Unmarshal(ev.Data, &secs) == nil {
			p.duration = seconds(secs)
		}
	}
	return 0, false
}

func endFileError(fileError string) ErrorCode {
	switch {
	case strings.Contains(fileError, "loading failed"),
		strings.Contains(fileError, "no such file"),
		strings.Contains(fileError, "unrecognized file format"):
		return ErrorNotFound
	}
	return ErrorEngine
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// command sends a request without waiting for its reply.
func (p *mpvPlayer) command(args ...any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.conn == nil {
		return errNotConnected
	}
	p.reqID++
	msg, err := json.Marshal(map[string]any{"command": args, "request_id": p.reqID})
	if err != nil {
		return err
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = p.conn.Write(append(msg, '\n'))
	return err
}

// send is command for callers that only log failures. Commands sent before
// the socket is up are dropped; Load applies the stored volume at spawn.
func (p *mpvPlayer) send(args ...any) {
	if err := p.command(args...); err != nil && !errors.Is(err, errNotConnected) {
		slog.Warn("mpv command failed", "command", args[0], "error", err)
	}
}

func (p *mpvPlayer) Play() {
	p.send("set_property", "pause", false)
}

func (p *mpvPlayer) Pause() {
	p.send("set_property", "pause", true)
}

func (p *mpvPlayer) Stop() {
	p.send("set_property", "pause", true)
	p.send("seek", 0, "absolute")
}

func (p *mpvPlayer) SetVolume(level float64) {
	level = sound.Clamp(level)
	p.mu.Lock()
	p.volume = level
	p.mu.Unlock()
	p.send("set_property", "volume", level*100)
}

func (p *mpvPlayer) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *mpvPlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *mpvPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *mpvPlayer) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	proc, exited := p.proc, p.exited
	p.mu.Unlock()

	_ = p.command("quit")

	p.writeMu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.writeMu.Unlock()

	if proc != nil {
		select {
		case <-exited:
		case <-time.After(time.Second):
			if err := proc.Kill(); err != nil {
				slog.Warn("failed to kill mpv", "error", err)
			}
		}
	}

	if err := os.Remove(p.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove mpv socket", "socket", p.socket, "error", err)
	}
}
