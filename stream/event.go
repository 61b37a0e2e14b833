package stream

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go-eremit/midi"
)

// Kind identifies what an event does when it starts and ends
type Kind int

const (
	KindTick Kind = iota
	KindNote
	KindNoteOn
	KindNoteOff
	KindControlChange
	KindProgramChange
	KindPitchBend
	KindAftertouch
	KindClock
	KindStart
	KindContinue
	KindStop
	KindReset
)

var kindNames = map[Kind]string{
	KindTick:          "tick",
	KindNote:          "note",
	KindNoteOn:        "note_on",
	KindNoteOff:       "note_off",
	KindControlChange: "cc",
	KindProgramChange: "program",
	KindPitchBend:     "bend",
	KindAftertouch:    "aftertouch",
	KindClock:         "clock",
	KindStart:         "start",
	KindContinue:      "continue",
	KindStop:          "stop",
	KindReset:         "reset",
}

// payload sizes per kind
var payloadLen = map[Kind]int{
	KindTick:          0,
	KindNote:          3, // note, velocity, channel
	KindNoteOn:        3, // note, velocity, channel
	KindNoteOff:       2, // note, channel
	KindControlChange: 3, // control, value, channel
	KindProgramChange: 2, // program, channel
	KindPitchBend:     3, // lsb, msb, channel (14 bit, 8192 = center)
	KindAftertouch:    3, // note, pressure, channel
	KindClock:         0,
	KindStart:         0,
	KindContinue:      0,
	KindStop:          0,
	KindReset:         0,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String (case-insensitive)
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(s)
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown event kind %q", s)
}

// State of an event within the current cycle
type State int

const (
	Pending State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Ended:
		return "ended"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Event is a scheduled action over [Begin, End) beats, relative to the
// start of the owning stream's cycle.
type Event struct {
	Begin   float64
	End     float64
	Kind    Kind
	Payload []byte

	state State
}

// NewEvent validates and builds an event
func NewEvent(kind Kind, begin, end float64, payload ...byte) (*Event, error) {
	want, ok := payloadLen[kind]
	if !ok {
		return nil, errors.Errorf("unknown event kind %d", int(kind))
	}
	if len(payload) != want {
		return nil, errors.Errorf("%s event takes %d payload bytes, got %d", kind, want, len(payload))
	}
	if begin < 0 || end < begin {
		return nil, errors.Errorf("invalid event range [%g, %g)", begin, end)
	}
	return &Event{
		Begin:   begin,
		End:     end,
		Kind:    kind,
		Payload: append([]byte(nil), payload...),
	}, nil
}

// Note is a convenience for a note event (on at begin, off at end)
func Note(begin, end float64, note, velocity, channel uint8) *Event {
	return &Event{Begin: begin, End: end, Kind: KindNote, Payload: []byte{note, velocity, channel}}
}

// ParseEvent builds an event from text arguments: kind begin end payload...
func ParseEvent(args []string) (*Event, error) {
	if len(args) < 3 {
		return nil, errors.Errorf("event needs kind, begin and end, got %d args", len(args))
	}
	kind, err := ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	begin, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	end, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, errors.Wrap(err, "end")
	}

	var payload []byte
	if kind == KindPitchBend && len(args) == 5 {
		// bend value channel
		v, err := strconv.Atoi(args[3])
		if err != nil || v < -8192 || v > 8191 {
			return nil, errors.Errorf("bend value %q out of range", args[3])
		}
		ch, err := strconv.ParseUint(args[4], 10, 8)
		if err != nil {
			return nil, errors.Wrap(err, "channel")
		}
		raw := uint16(v + 8192)
		payload = []byte{byte(raw & 0x7f), byte(raw >> 7), byte(ch)}
	} else {
		for _, a := range args[3:] {
			b, err := strconv.ParseUint(a, 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "payload %q", a)
			}
			payload = append(payload, byte(b))
		}
	}
	return NewEvent(kind, begin, end, payload...)
}

// Args renders the event back into ParseEvent form
func (e *Event) Args() []string {
	args := []string{
		e.Kind.String(),
		strconv.FormatFloat(e.Begin, 'f', -1, 64),
		strconv.FormatFloat(e.End, 'f', -1, 64),
	}
	for _, b := range e.Payload {
		args = append(args, strconv.Itoa(int(b)))
	}
	return args
}

// State returns where the event is in the current cycle
func (e *Event) State() State {
	return e.state
}

func (e *Event) bend() int16 {
	raw := int(e.Payload[0]&0x7f) | int(e.Payload[1]&0x7f)<<7
	return int16(raw - 8192)
}

// start fires the begin action
func (e *Event) start(sink midi.Sink, onTick func()) {
	p := e.Payload
	switch e.Kind {
	case KindTick:
		if onTick != nil {
			onTick()
		}
	case KindNote, KindNoteOn:
		sink.NoteOn(p[0], p[1], p[2])
	case KindNoteOff:
		sink.NoteOff(p[0], p[1])
	case KindControlChange:
		sink.ControlChange(p[0], p[1], p[2])
	case KindProgramChange:
		sink.ProgramChange(p[0], p[1])
	case KindPitchBend:
		sink.PitchBend(e.bend(), p[2])
	case KindAftertouch:
		sink.Aftertouch(p[0], p[1], p[2])
	case KindClock:
		sink.Clock()
	case KindStart:
		sink.Start()
	case KindContinue:
		sink.Continue()
	case KindStop:
		sink.Stop()
	case KindReset:
		sink.Reset()
	}
}

// finish fires the end action. Only notes and bends have one.
func (e *Event) finish(sink midi.Sink) {
	p := e.Payload
	switch e.Kind {
	case KindNote:
		sink.NoteOff(p[0], p[2])
	case KindPitchBend:
		sink.PitchBend(0, p[2])
	}
}

// advance moves the event through pending → active → ended for position
// pos (beats since cycle start), firing actions on each transition.
func (e *Event) advance(pos float64, sink midi.Sink, onTick func()) {
	if e.state == Pending && pos >= e.Begin {
		e.state = Active
		e.start(sink, onTick)
	}
	if e.state == Active && pos >= e.End {
		e.state = Ended
		e.finish(sink)
	}
}
