package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStderr_Notice(t *testing.T) {
	var buf bytes.Buffer
	Stderr{W: &buf}.Notice("Music", "No songs found.")

	out := buf.String()
	if !strings.Contains(out, "Music:") || !strings.Contains(out, "No songs found.") {
		t.Errorf("Notice() output = %q", out)
	}
}

func TestDesktop_FallsBackOnError(t *testing.T) {
	orig := desktopNotify
	defer func() { desktopNotify = orig }()
	desktopNotify = func(title, message string) error { return errors.New("no dbus") }

	var got []string
	d := Desktop{Fallback: Func(func(title, message string) {
		got = append(got, title+"|"+message)
	})}
	d.Notice("Music", "Search failed")

	if len(got) != 1 || got[0] != "Music|Search failed" {
		t.Errorf("fallback calls = %v", got)
	}
}

func TestDesktop_NoFallbackOnSuccess(t *testing.T) {
	orig := desktopNotify
	defer func() { desktopNotify = orig }()
	desktopNotify = func(title, message string) error { return nil }

	called := false
	Desktop{Fallback: Func(func(string, string) { called = true })}.Notice("a", "b")
	if called {
		t.Error("fallback called despite successful desktop notification")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(true).(Desktop); !ok {
		t.Error("New(true) should return Desktop")
	}
	if _, ok := New(false).(Stderr); !ok {
		t.Error("New(false) should return Stderr")
	}
}
