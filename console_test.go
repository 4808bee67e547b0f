package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// lossySink is a sink that reports a fixed number of dropped frames.
type lossySink struct {
	recordingSink
	dropped int64
}

func (s *lossySink) DroppedFrames() int64 { return s.dropped }

type consoleFixture struct {
	console *Console
	session *Session
	conn    *Connection
	out     *bytes.Buffer
}

func newConsoleFixture(ports ...*fakePort) *consoleFixture {
	session := NewSession(DEFAULT_DEADBAND, 5000, 1)
	conn := NewConnection(fakeOpener(ports...), 0)
	queue := NewPlaybackQueue()
	engine := NewEngine(session, queue, conn, EngineConfig{})
	drainer := NewDrainer(queue, &lossySink{dropped: 7}, 0)
	out := &bytes.Buffer{}
	return &consoleFixture{
		console: NewConsole(session, conn, engine, drainer, out),
		session: session,
		conn:    conn,
		out:     out,
	}
}

// exec runs line and returns what the console printed.
func (f *consoleFixture) exec(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	if err := f.console.Exec(line); err != nil {
		t.Fatalf("Exec(%q) = %v", line, err)
	}
	return f.out.String()
}

func TestConsoleParameters(t *testing.T) {
	f := newConsoleFixture()
	if got := f.exec(t, "sensitivity 100"); got != "sensitivity: 100\n" {
		t.Errorf("sensitivity replied %q", got)
	}
	if got := f.exec(t, "zoom 9"); got != "seconds per rotation: 3\n" {
		t.Errorf("zoom replied %q", got)
	}
	if got := f.exec(t, "  "); got != "" {
		t.Errorf("blank line replied %q", got)
	}
	for _, line := range []string{"sensitivity", "sensitivity lots", "zoom 1 2", "bogus", "open"} {
		if err := f.console.Exec(line); err == nil {
			t.Errorf("Exec(%q) succeeded", line)
		}
	}
}

func TestConsoleTrackCommands(t *testing.T) {
	f := newConsoleFixture()
	if err := f.console.Exec("seek 5"); !errors.Is(err, ErrNoTrack) {
		t.Fatalf("seek without track = %v, want ErrNoTrack", err)
	}
	if got := f.exec(t, "tone 440 1"); got != "loaded tone 440 Hz (44100 frames)\n" {
		t.Errorf("tone replied %q", got)
	}
	if got := f.exec(t, "seek 50"); got != "playhead: 50\n" {
		t.Errorf("seek replied %q", got)
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, rampBuffer(300, 8000))
	if got := f.exec(t, "load "+path); got != "loaded clip.wav (300 frames)\n" {
		t.Errorf("load replied %q", got)
	}
	if f.session.Playhead() != 0 {
		t.Errorf("load left playhead at %d", f.session.Playhead())
	}
	f.exec(t, "unload")
	if f.session.Track() != nil {
		t.Error("unload kept the track")
	}
}

func TestConsolePortCommands(t *testing.T) {
	knob, auto := newFakePort(), newFakePort()
	f := newConsoleFixture(knob, auto)
	f.console.portsDir = t.TempDir()

	if err := f.console.Exec("open auto"); err == nil {
		t.Fatal("open auto with no devices succeeded")
	}
	if got := f.exec(t, "ports"); got != "no serial devices found\n" {
		t.Errorf("ports replied %q", got)
	}
	if got := f.exec(t, "open knob"); got != "current port: knob\n" {
		t.Errorf("open replied %q", got)
	}
	f.exec(t, "reset")
	if knob.output() != "0 " {
		t.Errorf("reset wrote %q", knob.output())
	}

	f.exec(t, "tone 440 1")
	f.exec(t, "seek 50")
	status := f.exec(t, "status")
	for _, want := range []string{"port: knob\n", "track: tone 440 Hz\n", "playhead: 50/44100\n", "sensitivity: 5000\n", "dropped frames: 7\n"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q missing %q", status, want)
		}
	}

	dev := filepath.Join(f.console.portsDir, "ttyACM0")
	if err := os.WriteFile(dev, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := f.exec(t, "open auto"); got != "current port: "+dev+"\n" {
		t.Errorf("open auto replied %q", got)
	}
	if !knob.isClosed() {
		t.Error("previous port left open")
	}

	f.exec(t, "close")
	if !strings.Contains(f.exec(t, "status"), "port: (closed)\n") {
		t.Error("status does not show the closed port")
	}
	if err := f.console.Exec("reset"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("reset while closed = %v, want ErrNotOpen", err)
	}
}

func TestConsoleRun(t *testing.T) {
	f := newConsoleFixture()
	quit, err := f.console.Run(context.Background(), strings.NewReader("help\nnope\nquit\nsensitivity 1\n"))
	if err != nil || !quit {
		t.Fatalf("Run() = %v, %v, want quit", quit, err)
	}
	out := f.out.String()
	if !strings.Contains(out, "open <port|auto>\n") || !strings.Contains(out, "error: unknown command \"nope\"") {
		t.Errorf("output %q", out)
	}
	if f.session.Sensitivity() != 5000 {
		t.Error("ran a command after quit")
	}

	quit, err = f.console.Run(context.Background(), strings.NewReader("zoom 2\n"))
	if err != nil || quit {
		t.Fatalf("Run() at end of input = %v, %v", quit, err)
	}
	if f.session.SecondsPerRotation() != 2 {
		t.Error("zoom not applied")
	}
}
