package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/tarm/serial"
)

// DEFAULT_BAUD matches the knob firmware.
const DEFAULT_BAUD = 115200

// tokenDelimiter terminates every angle token on the wire.
const tokenDelimiter = ' '

// DEFAULT_READ_TIMEOUT bounds how long a serial read waits for data, and so
// how long closing a silent port can take. The driver rounds it up to a
// multiple of 100ms.
const DEFAULT_READ_TIMEOUT = 100 * time.Millisecond

// ErrNotOpen is returned by Connection reads and writes while no port is open.
var ErrNotOpen = errors.New("serial connection not open")

// errReadTimeout is returned by a port read that saw no data in time.
var errReadTimeout = errors.New("serial read timed out")

// Opener opens a named serial port. Reads on the returned port may fail
// with errReadTimeout, which only means no data has arrived yet.
type Opener func(name string, baud int) (io.ReadWriteCloser, error)

// SerialOpener returns an Opener for real serial devices whose reads give
// up after readTimeout.
func SerialOpener(readTimeout time.Duration) Opener {
	if readTimeout <= 0 {
		readTimeout = DEFAULT_READ_TIMEOUT
	}
	return func(name string, baud int) (io.ReadWriteCloser, error) {
		p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
		if err != nil {
			return nil, err
		}
		return &timedPort{Port: p, timeout: readTimeout}, nil
	}
}

// OpenSerialPort opens a real serial device with the default read timeout.
func OpenSerialPort(name string, baud int) (io.ReadWriteCloser, error) {
	return SerialOpener(DEFAULT_READ_TIMEOUT)(name, baud)
}

// timedPort tells an expired read timeout apart from end of file. Both come
// back from the driver as an empty read; only the timeout takes time. An
// empty read that returns early means the device hung up.
type timedPort struct {
	*serial.Port
	timeout time.Duration
}

func (p *timedPort) Read(b []byte) (int, error) {
	start := time.Now()
	n, err := p.Port.Read(b)
	if n == 0 && (err == nil || (errors.Is(err, io.EOF) && time.Since(start) >= p.timeout/2)) {
		return 0, errReadTimeout
	}
	return n, err
}

// Connection is the knob's serial link. It can be opened and closed at any
// time from the control surface while the angle loop reads from it.
type Connection struct {
	open Opener
	baud int

	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
	name   string
	gen    uint64

	shutdown sync.Once
}

// NewConnection returns a closed connection that opens ports with open.
func NewConnection(open Opener, baud int) *Connection {
	if open == nil {
		open = OpenSerialPort
	}
	if baud <= 0 {
		baud = DEFAULT_BAUD
	}
	return &Connection{open: open, baud: baud}
}

// Open closes any current port and opens name.
func (c *Connection) Open(name string) error {
	port, err := c.open(name, c.baud)
	if err != nil {
		return fmt.Errorf("failed to open serial port %q: %w", name, err)
	}
	c.mu.Lock()
	old := c.port
	c.port = port
	c.reader = bufio.NewReader(port)
	c.name = name
	c.gen++
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log.Infof("opened serial port %s at %d baud", name, c.baud)
	return nil
}

// Close closes the current port, if any.
func (c *Connection) Close() error {
	c.mu.Lock()
	port, name := c.detachLocked()
	c.mu.Unlock()
	return closePort(port, name)
}

// CloseGeneration closes the port only if it is still the one identified
// by gen.
func (c *Connection) CloseGeneration(gen uint64) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	port, name := c.detachLocked()
	c.mu.Unlock()
	return closePort(port, name)
}

func (c *Connection) detachLocked() (io.ReadWriteCloser, string) {
	port, name := c.port, c.name
	c.port, c.reader, c.name = nil, nil, ""
	c.gen++
	return port, name
}

func closePort(port io.ReadWriteCloser, name string) error {
	if port == nil {
		return nil
	}
	log.Infof("closed serial port %s", name)
	return port.Close()
}

// Name returns the open port's name, or "" when closed.
func (c *Connection) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// ReadToken blocks until the next delimited token arrives and returns it
// along with the generation of the port it came from. The generation changes
// every time a port is opened or closed.
//
// Read timeouts keep the bytes received so far and read on, so a silent knob
// never holds the port open: once the port is closed or replaced the pending
// read returns ErrNotOpen within one timeout.
func (c *Connection) ReadToken() (string, uint64, error) {
	c.mu.Lock()
	r, gen := c.reader, c.gen
	c.mu.Unlock()
	if r == nil {
		return "", gen, ErrNotOpen
	}

	var tok []byte
	for {
		chunk, err := r.ReadBytes(tokenDelimiter)
		tok = append(tok, chunk...)
		switch {
		case err == nil:
			return string(tok), gen, nil
		case c.generation() != gen:
			return "", gen, ErrNotOpen
		case !errors.Is(err, errReadTimeout):
			return "", gen, fmt.Errorf("failed to read from serial port: %w", err)
		}
	}
}

func (c *Connection) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// WriteTorque sends a torque command to the knob.
func (c *Connection) WriteTorque(torque int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrNotOpen
	}
	if _, err := io.WriteString(c.port, strconv.Itoa(torque)+string(tokenDelimiter)); err != nil {
		return fmt.Errorf("failed to write torque %d: %w", torque, err)
	}
	return nil
}

// ResetTorque sends the neutral torque command.
func (c *Connection) ResetTorque() error {
	return c.WriteTorque(NEUTRAL_TORQUE)
}

// Shutdown sends neutral torque and closes the port. Only the first call
// has any effect.
func (c *Connection) Shutdown() {
	c.shutdown.Do(func() {
		if err := c.ResetTorque(); err != nil && !errors.Is(err, ErrNotOpen) {
			log.Errorf("failed to reset torque on shutdown: %v", err)
		}
		if err := c.Close(); err != nil {
			log.Warningf("failed to close serial port: %v", err)
		}
	})
}

// serialDevicePrefixes are the /dev names USB serial adapters show up as.
var serialDevicePrefixes = []string{"ttyUSB", "ttyACM", "tty.usbserial", "tty.usbmodem", "cu.usbserial", "cu.usbmodem"}

// ListSerialPorts returns the candidate serial devices found in dir.
func ListSerialPorts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var ports []string
	for _, e := range entries {
		for _, p := range serialDevicePrefixes {
			if strings.HasPrefix(e.Name(), p) {
				ports = append(ports, dir+"/"+e.Name())
				break
			}
		}
	}
	return ports, nil
}
