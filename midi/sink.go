package midi

import (
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-eremit/debug"
)

// Sink is the write-only MIDI destination streams play into.
// Calls are synchronous and best effort: failures never reach the caller.
// Channels are 0-15.
type Sink interface {
	NoteOn(note, velocity, channel uint8)
	NoteOff(note, channel uint8)
	ControlChange(control, value, channel uint8)
	ProgramChange(program, channel uint8)
	PitchBend(value int16, channel uint8)
	Aftertouch(note, value, channel uint8)

	// Transport / system realtime
	Clock()
	Start()
	Continue()
	Stop()
	Reset()
}

// Output encodes Sink calls into MIDI messages and hands them to send.
type Output struct {
	name string
	send func(gomidi.Message) error
	mu   sync.Mutex
}

// NewOutput wraps a sender (e.g. from gomidi.SendTo)
func NewOutput(name string, send func(gomidi.Message) error) *Output {
	return &Output{name: name, send: send}
}

// Name returns the port name this output writes to
func (o *Output) Name() string {
	return o.name
}

func (o *Output) NoteOn(note, velocity, channel uint8) {
	o.emit(gomidi.NoteOn(channel&0x0f, note&0x7f, velocity&0x7f))
}

func (o *Output) NoteOff(note, channel uint8) {
	o.emit(gomidi.NoteOff(channel&0x0f, note&0x7f))
}

func (o *Output) ControlChange(control, value, channel uint8) {
	o.emit(gomidi.ControlChange(channel&0x0f, control&0x7f, value&0x7f))
}

func (o *Output) ProgramChange(program, channel uint8) {
	o.emit(gomidi.ProgramChange(channel&0x0f, program&0x7f))
}

// PitchBend takes a signed value in [-8192, 8191], 0 is center
func (o *Output) PitchBend(value int16, channel uint8) {
	if value < -8192 {
		value = -8192
	}
	if value > 8191 {
		value = 8191
	}
	o.emit(gomidi.Pitchbend(channel&0x0f, value))
}

// Aftertouch sends polyphonic key pressure
func (o *Output) Aftertouch(note, value, channel uint8) {
	o.emit(gomidi.PolyAfterTouch(channel&0x0f, note&0x7f, value&0x7f))
}

func (o *Output) Clock() {
	o.emit(gomidi.TimingClock())
}

func (o *Output) Start() {
	o.emit(gomidi.Start())
}

func (o *Output) Continue() {
	o.emit(gomidi.Continue())
}

func (o *Output) Stop() {
	o.emit(gomidi.Stop())
}

func (o *Output) Reset() {
	o.emit(gomidi.Reset())
}

func (o *Output) emit(msg gomidi.Message) {
	if o == nil || o.send == nil {
		return
	}
	o.mu.Lock()
	err := o.send(msg)
	o.mu.Unlock()
	if err != nil {
		// Swallowed: a flaky port must not stall the scheduler.
		debug.LogEvery(10, "midi", "send to %s failed: %v (%s)", o.name, err, msg)
	}
}

// Recorder is an in-memory Sink keeping every message it was asked to send.
type Recorder struct {
	*Output
	mu       sync.Mutex
	messages []gomidi.Message
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Output = NewOutput("recorder", r.record)
	return r
}

func (r *Recorder) record(msg gomidi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, append(gomidi.Message(nil), msg...))
	return nil
}

// Messages returns a copy of everything recorded so far
func (r *Recorder) Messages() []gomidi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gomidi.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Clear drops everything recorded so far
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// Log returns a Sink that only writes messages to the debug log.
func Log() Sink {
	return NewOutput("log", func(msg gomidi.Message) error {
		debug.Log("midi", "%s", msg)
		return nil
	})
}
