package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

// errQuit is returned by Exec for the quit command.
var errQuit = errors.New("quit")

// Console is a line-oriented control surface: it opens and closes the serial
// port, loads audio and adjusts the scrub parameters.
type Console struct {
	session  *Session
	conn     *Connection
	engine   *Engine
	drainer  *Drainer
	out      io.Writer
	portsDir string

	commands map[string]command
}

type command struct {
	usage string
	run   func(args []string) error
}

// NewConsole returns a console writing replies to out.
func NewConsole(session *Session, conn *Connection, engine *Engine, drainer *Drainer, out io.Writer) *Console {
	c := &Console{session: session, conn: conn, engine: engine, drainer: drainer, out: out, portsDir: "/dev"}
	c.commands = map[string]command{
		"open":        {"open <port|auto>", c.open},
		"close":       {"close", c.close},
		"ports":       {"ports", c.ports},
		"load":        {"load <file.wav>", c.load},
		"tone":        {"tone <hz> <seconds>", c.tone},
		"unload":      {"unload", c.unload},
		"seek":        {"seek <frame>", c.seek},
		"sensitivity": {"sensitivity <0-25000>", c.sensitivity},
		"zoom":        {"zoom <1-3>", c.zoom},
		"reset":       {"reset", c.reset},
		"status":      {"status", c.status},
		"help":        {"help", c.help},
		"quit":        {"quit", func([]string) error { return errQuit }},
	}
	return c
}

// Run executes commands read from in until quit, end of input, or ctx is
// cancelled. quit reports whether the user asked to exit. Command errors are
// reported to the user and do not stop it.
func (c *Console) Run(ctx context.Context, in io.Reader) (quit bool, err error) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return false, nil
		}
		execErr := c.Exec(sc.Text())
		switch {
		case errors.Is(execErr, errQuit):
			return true, nil
		case execErr != nil:
			fmt.Fprintf(c.out, "error: %v\n", execErr)
		}
	}
	return false, sc.Err()
}

// Exec runs a single command line.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return cmd.run(fields[1:])
}

func wantArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (c *Console) open(args []string) error {
	if err := wantArgs(args, 1, c.commands["open"].usage); err != nil {
		return err
	}
	name := args[0]
	if name == "auto" {
		ports, err := ListSerialPorts(c.portsDir)
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return fmt.Errorf("no serial devices found in %s", c.portsDir)
		}
		name = ports[0]
	}
	if err := c.conn.Open(name); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "current port: %s\n", name)
	return nil
}

func (c *Console) close([]string) error {
	return c.conn.Close()
}

func (c *Console) ports([]string) error {
	ports, err := ListSerialPorts(c.portsDir)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.out, "no serial devices found")
	}
	for _, p := range ports {
		fmt.Fprintln(c.out, p)
	}
	return nil
}

func (c *Console) load(args []string) error {
	if err := wantArgs(args, 1, c.commands["load"].usage); err != nil {
		return err
	}
	t, err := LoadWAVFile(args[0])
	if err != nil {
		return err
	}
	c.session.Load(t)
	fmt.Fprintf(c.out, "loaded %s (%d frames)\n", t.Name, t.Frames())
	return nil
}

func (c *Console) tone(args []string) error {
	if err := wantArgs(args, 2, c.commands["tone"].usage); err != nil {
		return err
	}
	freq, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad frequency %q: %w", args[0], err)
	}
	seconds, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", args[1], err)
	}
	t, err := ToneTrack(freq, seconds, DEFAULT_SAMPLE_RATE)
	if err != nil {
		return err
	}
	c.session.Load(t)
	fmt.Fprintf(c.out, "loaded %s (%d frames)\n", t.Name, t.Frames())
	return nil
}

func (c *Console) unload([]string) error {
	c.session.Unload()
	return nil
}

func (c *Console) seek(args []string) error {
	if err := wantArgs(args, 1, c.commands["seek"].usage); err != nil {
		return err
	}
	frame, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad frame %q: %w", args[0], err)
	}
	at, err := c.session.Seek(frame)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "playhead: %d\n", at)
	return nil
}

func (c *Console) sensitivity(args []string) error {
	if err := wantArgs(args, 1, c.commands["sensitivity"].usage); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad sensitivity %q: %w", args[0], err)
	}
	c.session.SetSensitivity(v)
	fmt.Fprintf(c.out, "sensitivity: %g\n", c.session.Sensitivity())
	return nil
}

func (c *Console) zoom(args []string) error {
	if err := wantArgs(args, 1, c.commands["zoom"].usage); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad zoom %q: %w", args[0], err)
	}
	c.session.SetSecondsPerRotation(v)
	fmt.Fprintf(c.out, "seconds per rotation: %g\n", c.session.SecondsPerRotation())
	return nil
}

func (c *Console) reset([]string) error {
	if err := c.conn.ResetTorque(); err != nil {
		return err
	}
	log.Info("torque reset to neutral")
	return nil
}

func (c *Console) status([]string) error {
	st := c.engine.Status(c.conn.Name())
	if c.drainer != nil {
		st.DroppedFrames = c.drainer.DroppedFrames()
	}
	port := st.Port
	if port == "" {
		port = "(closed)"
	}
	track := st.Track
	if track == "" {
		track = "(none)"
	}
	fmt.Fprintf(c.out, "port: %s\n", port)
	fmt.Fprintf(c.out, "track: %s\n", track)
	fmt.Fprintf(c.out, "playhead: %d/%d\n", st.Playhead, st.Frames)
	fmt.Fprintf(c.out, "angle: %d (unwrapped %d)\n", st.RawAngle, st.UnwrappedAngle)
	fmt.Fprintf(c.out, "torque: %d\n", st.LastTorque)
	fmt.Fprintf(c.out, "sensitivity: %g\n", st.Sensitivity)
	fmt.Fprintf(c.out, "seconds per rotation: %g\n", st.SecondsPerRotation)
	fmt.Fprintf(c.out, "queued chunks: %d\n", st.Queued)
	fmt.Fprintf(c.out, "dropped frames: %d\n", st.DroppedFrames)
	fmt.Fprintf(c.out, "readings: %d (rejected %d, velocity warnings %d)\n", st.Readings, st.Rejected, st.VelocityWarnings)
	return nil
}

func (c *Console) help([]string) error {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(c.out, c.commands[name].usage)
	}
	return nil
}
