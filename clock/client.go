package clock

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-eremit/stream"
)

// Client is the caller side of the control channel. It is safe for
// concurrent use: sends never block, and queries are serialized so that
// at most one is waiting on the reply mailbox.
//
// Queries have no timeout. If the engine stalls, a query blocks until the
// engine exits, at which point it fails with ErrChannelClosed.
type Client struct {
	commands *mailbox[Message]
	replies  *mailbox[Message]
	mu       sync.Mutex
}

// Send queues a command. Query commands are sent through Query and their
// reply is discarded.
func (c *Client) Send(cmd Command) error {
	if cmd.Query() {
		_, err := c.Query(cmd)
		return err
	}
	return c.commands.send(cmd.Message())
}

// Query sends cmd and waits for its reply
func (c *Client) Query(cmd Command) (Message, error) {
	m := cmd.Message()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.commands.send(m); err != nil {
		return Message{}, err
	}
	reply, err := c.replies.recv()
	if err != nil {
		return Message{}, err
	}
	if reply.Name != m.Name {
		return reply, &ProtocolError{Command: m.Name, Reply: reply, Err: errors.New("reply name mismatch")}
	}
	return reply, nil
}

// Exec parses a command line, sends it and returns the reply of a query
// (zero Message otherwise). Unknown names are forwarded to the engine,
// which logs and ignores them.
func (c *Client) Exec(line string) (Message, error) {
	m, err := ParseLine(line)
	if err != nil {
		return Message{}, err
	}
	cmd, err := Decode(m)
	if err != nil {
		return Message{}, err
	}
	if !cmd.Query() {
		return Message{}, c.commands.send(cmd.Message())
	}
	return c.Query(cmd)
}

func (c *Client) queryOne(cmd Command) (Message, string, error) {
	reply, err := c.Query(cmd)
	if err != nil {
		return reply, "", err
	}
	if len(reply.Args) != 1 {
		return reply, "", &ProtocolError{
			Command: reply.Name,
			Reply:   reply,
			Err:     errors.Errorf("expected 1 argument, got %d", len(reply.Args)),
		}
	}
	return reply, reply.Args[0], nil
}

func (c *Client) queryFloat(cmd Command) (float64, error) {
	reply, arg, err := c.queryOne(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, &ProtocolError{Command: reply.Name, Reply: reply, Err: err}
	}
	return v, nil
}

func (c *Client) queryInt(cmd Command) (int64, error) {
	reply, arg, err := c.queryOne(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, &ProtocolError{Command: reply.Name, Reply: reply, Err: err}
	}
	return v, nil
}

func (c *Client) Tempo() (float64, error) {
	return c.queryFloat(GetTempo{})
}

func (c *Client) Phase() (float64, error) {
	return c.queryFloat(GetPhase{})
}

func (c *Client) Beats() (float64, error) {
	return c.queryFloat(Beats{})
}

func (c *Client) Quantum() (float64, error) {
	return c.queryFloat(GetQuantum{})
}

// Unix returns the engine's wall clock in seconds
func (c *Client) Unix() (float64, error) {
	return c.queryFloat(Unix{})
}

func (c *Client) Peers() (uint64, error) {
	n, err := c.queryInt(Peers{})
	return uint64(n), err
}

func (c *Client) Subscribers() (int, error) {
	n, err := c.queryInt(Subscribers{})
	return int(n), err
}

// NextPhaseBoundary returns the wall clock time at which the next bar starts
func (c *Client) NextPhaseBoundary() (time.Time, error) {
	ms, err := c.queryInt(NextPhase{})
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (c *Client) Status() (Snapshot, error) {
	reply, err := c.Query(Status{})
	if err != nil {
		return Snapshot{}, err
	}
	s, err := parseSnapshot(reply.Args)
	if err != nil {
		return Snapshot{}, &ProtocolError{Command: reply.Name, Reply: reply, Err: err}
	}
	return s, nil
}

func (c *Client) SetTempo(bpm float64) error {
	return c.Send(SetTempo{BPM: bpm})
}

func (c *Client) SetQuantum(q float64) error {
	return c.Send(SetQuantum{Quantum: q})
}

// TogglePlay starts or stops the transport
func (c *Client) TogglePlay() error {
	return c.Send(Play{})
}

// ToggleSync flips start/stop sync with peers
func (c *Client) ToggleSync() error {
	return c.Send(Sync{})
}

func (c *Client) AddSubscriber(name string) error {
	return c.Send(AddSubscriber{Name: name})
}

func (c *Client) RemoveSubscriber(name string) error {
	return c.Send(RemoveSubscriber{Name: name})
}

func (c *Client) AddEvent(streamName string, ev *stream.Event) error {
	return c.Send(AddEvent{Stream: streamName, Event: ev})
}

func (c *Client) ClearEvents(streamName string) error {
	return c.Send(ClearEvents{Stream: streamName})
}

// Report asks the engine to print a status line
func (c *Client) Report() error {
	return c.Send(Report{})
}

// Quit stops the engine after its current tick
func (c *Client) Quit() error {
	return c.Send(Quit{})
}
