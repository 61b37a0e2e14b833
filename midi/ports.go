package midi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-eremit/debug"
)

// ErrNoOutputPort is returned when no MIDI output is available.
var ErrNoOutputPort = errors.New("no MIDI output port found")

// ErrPortScanTimeout is returned when the driver does not answer a port scan.
var ErrPortScanTimeout = errors.New("timed out listing MIDI ports")

// StartupError reports that no output could be opened after all retries.
type StartupError struct {
	Attempts int
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("midi: no usable output after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *StartupError) Cause() error  { return e.Err }
func (e *StartupError) Unwrap() error { return e.Err }

// Ports abstracts the driver so selection can be tested without hardware.
type Ports interface {
	OutNames() ([]string, error)
	Open(name string) (func(gomidi.Message) error, error)
}

// DriverPorts lists and opens ports through the registered gomidi driver.
// The driver itself is registered by the binary (see cmd/eremit).
type DriverPorts struct {
	// Timeout bounds a port scan (CoreMIDI can hang)
	Timeout time.Duration
}

// OutNames returns the names of all output ports
func (p DriverPorts) OutNames() ([]string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		names := make([]string, len(outs))
		for i, out := range outs {
			names[i] = out.String()
		}
		return names, nil
	case <-time.After(timeout):
		return nil, ErrPortScanTimeout
	}
}

// Open opens the output port with the exact given name
func (p DriverPorts) Open(name string) (func(gomidi.Message) error, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() == name {
			send, err := gomidi.SendTo(port)
			if err != nil {
				return nil, errors.Wrapf(err, "opening %q", name)
			}
			return send, nil
		}
	}
	return nil, errors.Errorf("output port %q disappeared", name)
}

// Close releases the MIDI driver
func Close() {
	gomidi.CloseDriver()
}

// SelectPort picks an output by case-insensitive substring of want. With no
// preference, the first port is used.
func SelectPort(names []string, want string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoOutputPort
	}
	if want == "" {
		return names[0], nil
	}
	w := strings.ToLower(want)
	for _, name := range names {
		if strings.ToLower(name) == w {
			return name, nil
		}
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), w) {
			return name, nil
		}
	}
	return "", errors.Wrapf(ErrNoOutputPort, "no port matching %q among %d", want, len(names))
}

// OpenOptions configures Open.
type OpenOptions struct {
	PortName   string
	Retries    int
	RetryDelay time.Duration
	Ports      Ports
}

// Open selects and opens an output, rescanning up to Retries times.
// Exhausted retries yield a *StartupError; the caller decides whether that
// is fatal.
func Open(ctx context.Context, opts OpenOptions) (*Output, error) {
	ports := opts.Ports
	if ports == nil {
		ports = DriverPorts{}
	}
	attempts := opts.Retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := tryOpen(ports, opts.PortName)
		if err == nil {
			debug.Log("midi", "opened output %q (attempt %d)", out.Name(), attempt)
			return out, nil
		}
		lastErr = err
		debug.Log("midi", "attempt %d/%d: %v", attempt, attempts, err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &StartupError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(opts.RetryDelay):
		}
	}
	return nil, &StartupError{Attempts: attempts, Err: lastErr}
}

func tryOpen(ports Ports, want string) (*Output, error) {
	names, err := ports.OutNames()
	if err != nil {
		return nil, err
	}
	name, err := SelectPort(names, want)
	if err != nil {
		return nil, err
	}
	send, err := ports.Open(name)
	if err != nil {
		return nil, err
	}
	return NewOutput(name, send), nil
}
