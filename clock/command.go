package clock

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"go-eremit/stream"
)

// Command is the closed set of requests the engine understands.
// Every command maps to exactly one wire Message.
type Command interface {
	Message() Message
	// Query reports whether the engine answers with a reply.
	Query() bool
	command()
}

type (
	// Report prints a status line; no reply.
	Report struct{}
	// GetTempo replies [tempo].
	GetTempo struct{}
	// GetPhase replies [phase].
	GetPhase struct{}
	// Beats replies [beat].
	Beats struct{}
	// Peers replies [peer count].
	Peers struct{}
	// Subscribers replies [subscriber count].
	Subscribers struct{}
	// SetTempo changes the shared tempo.
	SetTempo struct{ BPM float64 }
	// Play toggles the transport.
	Play struct{}
	// Sync toggles start/stop sync.
	Sync struct{}
	// AddSubscriber registers an empty stream.
	AddSubscriber struct{ Name string }
	// RemoveSubscriber unregisters a stream by name.
	RemoveSubscriber struct{ Name string }
	// Status replies with a full snapshot.
	Status struct{}
	// NextPhase replies [unix millis] of the next quantum boundary.
	NextPhase struct{}
	// GetQuantum replies [quantum].
	GetQuantum struct{}
	// SetQuantum changes the beats per bar.
	SetQuantum struct{ Quantum float64 }
	// AddEvent schedules an event on a stream.
	AddEvent struct {
		Stream string
		Event  *stream.Event
	}
	// ClearEvents empties a stream.
	ClearEvents struct{ Stream string }
	// Unix replies [wall clock seconds].
	Unix struct{}
	// Quit stops the engine after the current tick.
	Quit struct{}
	// Unknown is any message with an unrecognized name.
	Unknown struct{ Msg Message }
)

func msg(name string, args ...string) Message {
	return Message{Name: name, Args: args}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (Report) Message() Message      { return msg(CmdReport) }
func (GetTempo) Message() Message    { return msg(CmdGetTempo) }
func (GetPhase) Message() Message    { return msg(CmdGetPhase) }
func (Beats) Message() Message       { return msg(CmdBeats) }
func (Peers) Message() Message       { return msg(CmdPeers) }
func (Subscribers) Message() Message { return msg(CmdSubscribers) }
func (c SetTempo) Message() Message  { return msg(CmdSetTempo, formatFloat(c.BPM)) }
func (Play) Message() Message        { return msg(CmdPlay) }
func (Sync) Message() Message        { return msg(CmdSync) }
func (c AddSubscriber) Message() Message {
	return msg(CmdAddSubscriber, c.Name)
}
func (c RemoveSubscriber) Message() Message {
	return msg(CmdRemoveSubscriber, c.Name)
}
func (Status) Message() Message       { return msg(CmdStatus) }
func (NextPhase) Message() Message    { return msg(CmdNextPhase) }
func (GetQuantum) Message() Message   { return msg(CmdGetQuantum) }
func (c SetQuantum) Message() Message { return msg(CmdSetQuantum, formatFloat(c.Quantum)) }
func (c AddEvent) Message() Message {
	return msg(CmdAddEvent, append([]string{c.Stream}, c.Event.Args()...)...)
}
func (c ClearEvents) Message() Message { return msg(CmdClearEvents, c.Stream) }
func (Unix) Message() Message          { return msg(CmdUnix) }
func (Quit) Message() Message          { return msg(CmdQuit) }
func (c Unknown) Message() Message     { return c.Msg }

func (Report) Query() bool           { return false }
func (GetTempo) Query() bool         { return true }
func (GetPhase) Query() bool         { return true }
func (Beats) Query() bool            { return true }
func (Peers) Query() bool            { return true }
func (Subscribers) Query() bool      { return true }
func (SetTempo) Query() bool         { return false }
func (Play) Query() bool             { return false }
func (Sync) Query() bool             { return false }
func (AddSubscriber) Query() bool    { return false }
func (RemoveSubscriber) Query() bool { return false }
func (Status) Query() bool           { return true }
func (NextPhase) Query() bool        { return true }
func (GetQuantum) Query() bool       { return true }
func (SetQuantum) Query() bool       { return false }
func (AddEvent) Query() bool         { return false }
func (ClearEvents) Query() bool      { return false }
func (Unix) Query() bool             { return true }
func (Quit) Query() bool             { return false }
func (Unknown) Query() bool          { return false }

func (Report) command()           {}
func (GetTempo) command()         {}
func (GetPhase) command()         {}
func (Beats) command()            {}
func (Peers) command()            {}
func (Subscribers) command()      {}
func (SetTempo) command()         {}
func (Play) command()             {}
func (Sync) command()             {}
func (AddSubscriber) command()    {}
func (RemoveSubscriber) command() {}
func (Status) command()           {}
func (NextPhase) command()        {}
func (GetQuantum) command()       {}
func (SetQuantum) command()       {}
func (AddEvent) command()         {}
func (ClearEvents) command()      {}
func (Unix) command()             {}
func (Quit) command()             {}
func (Unknown) command()          {}

// Decode turns a wire message into a Command. Unrecognized names decode to
// Unknown; recognized names with bad arguments are an error.
func Decode(m Message) (Command, error) {
	switch m.Name {
	case CmdReport:
		return Report{}, nil
	case CmdGetTempo:
		return GetTempo{}, nil
	case CmdGetPhase:
		return GetPhase{}, nil
	case CmdBeats:
		return Beats{}, nil
	case CmdPeers:
		return Peers{}, nil
	case CmdSubscribers:
		return Subscribers{}, nil
	case CmdSetTempo:
		bpm, err := positiveArg(m)
		if err != nil {
			return nil, err
		}
		return SetTempo{BPM: bpm}, nil
	case CmdPlay:
		return Play{}, nil
	case CmdSync:
		return Sync{}, nil
	case CmdAddSubscriber:
		name, err := nameArg(m)
		if err != nil {
			return nil, err
		}
		return AddSubscriber{Name: name}, nil
	case CmdRemoveSubscriber:
		name, err := nameArg(m)
		if err != nil {
			return nil, err
		}
		return RemoveSubscriber{Name: name}, nil
	case CmdStatus:
		return Status{}, nil
	case CmdNextPhase:
		return NextPhase{}, nil
	case CmdGetQuantum:
		return GetQuantum{}, nil
	case CmdSetQuantum:
		q, err := positiveArg(m)
		if err != nil {
			return nil, err
		}
		return SetQuantum{Quantum: q}, nil
	case CmdAddEvent:
		if len(m.Args) < 1 {
			return nil, errors.Errorf("%s: missing stream name", m.Name)
		}
		ev, err := stream.ParseEvent(m.Args[1:])
		if err != nil {
			return nil, errors.Wrap(err, m.Name)
		}
		return AddEvent{Stream: m.Args[0], Event: ev}, nil
	case CmdClearEvents:
		name, err := nameArg(m)
		if err != nil {
			return nil, err
		}
		return ClearEvents{Stream: name}, nil
	case CmdUnix:
		return Unix{}, nil
	case CmdQuit:
		return Quit{}, nil
	}
	return Unknown{Msg: m}, nil
}

func nameArg(m Message) (string, error) {
	if len(m.Args) != 1 || m.Args[0] == "" {
		return "", errors.Errorf("%s: expected 1 name argument, got %d", m.Name, len(m.Args))
	}
	return m.Args[0], nil
}

func positiveArg(m Message) (float64, error) {
	if len(m.Args) != 1 {
		return 0, errors.Errorf("%s: expected 1 argument, got %d", m.Name, len(m.Args))
	}
	v, err := strconv.ParseFloat(m.Args[0], 64)
	if err != nil {
		return 0, errors.Wrap(err, m.Name)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, errors.Errorf("%s: %v must be positive", m.Name, v)
	}
	return v, nil
}
