// Package stream holds named, ordered lists of musical events that are
// evaluated once per bar transition and played into a MIDI sink.
package stream

import (
	"math"
	"sort"

	"go-eremit/debug"
	"go-eremit/midi"
)

// Stream is a named subscriber of the clock engine.
// It is not safe for concurrent use; the engine goroutine owns it.
type Stream struct {
	name   string
	events []*Event
	sink   midi.Sink

	// Loop resets all events to pending once every one has ended, so the
	// pattern repeats every cycle. Without it events play once.
	Loop bool

	lastBar  int64
	seen     bool
	origin   float64 // beat at which the current cycle started
	anchored bool
	stopped  bool

	onTick func()
}

// New creates a looping stream writing into sink
func New(name string, sink midi.Sink) *Stream {
	s := &Stream{
		name: name,
		sink: sink,
		Loop: true,
	}
	s.onTick = func() {
		debug.Log("stream", "%s: tick", s.name)
	}
	return s
}

func (s *Stream) Name() string {
	return s.name
}

// Add inserts an event keeping the list ordered by begin beat. The next
// tick evaluates the stream even if the bar has not changed.
func (s *Stream) Add(ev *Event) {
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Begin > ev.Begin
	})
	s.events = append(s.events, nil)
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
	s.seen = false
}

// Events returns the ordered event list
func (s *Stream) Events() []*Event {
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

// Clear removes all events, ending any that are still sounding
func (s *Stream) Clear() {
	s.release()
	s.events = nil
	s.anchored = false
}

// Close ends sounding events; the stream keeps its event list
func (s *Stream) Close() {
	s.release()
}

// TransportStarted re-arms the stream: the next tick evaluates the current
// bar and the cycle restarts there.
func (s *Stream) TransportStarted() {
	s.stopped = false
	s.seen = false
	s.anchored = false
}

// TransportStopped ends sounding events and holds the stream silent until
// the transport starts again.
func (s *Stream) TransportStopped() {
	s.release()
	s.stopped = true
}

// release fires end actions for active events and rewinds them to pending
func (s *Stream) release() {
	for _, ev := range s.events {
		if ev.state == Active {
			ev.finish(s.sink)
		}
		ev.state = Pending
	}
}

// cycle is the loop length: whole bars covering the latest event end
func (s *Stream) cycle(quantum float64) float64 {
	var last float64
	for _, ev := range s.events {
		last = math.Max(last, ev.End)
	}
	bars := math.Ceil(last / quantum)
	if bars < 1 {
		bars = 1
	}
	return bars * quantum
}

func (s *Stream) allEnded() bool {
	for _, ev := range s.events {
		if ev.state != Ended {
			return false
		}
	}
	return true
}

func (s *Stream) evaluate(pos float64) {
	for _, ev := range s.events {
		ev.advance(pos, s.sink, s.onTick)
	}
}

// NotifyTick is called by the engine on every tick. Work only happens
// when bar differs from the last bar seen and the transport is running.
func (s *Stream) NotifyTick(quantum, beat float64, bar int64) {
	if s.stopped || (s.seen && bar == s.lastBar) {
		return
	}
	if beat < 0 && !s.anchored {
		// count-in before a quantized start
		return
	}
	s.seen = true
	s.lastBar = bar

	if len(s.events) == 0 {
		s.anchored = false
		return
	}

	barStart := float64(bar) * quantum
	if !s.anchored {
		s.origin = barStart
		s.anchored = true
	}

	pos := beat - s.origin
	if pos < 0 {
		// Timeline moved backwards (transport realigned): restart the cycle here
		s.release()
		s.origin = barStart
		pos = beat - s.origin
	}

	s.evaluate(pos)

	if !s.Loop || !s.allEnded() {
		return
	}

	cycle := s.cycle(quantum)
	for _, ev := range s.events {
		ev.state = Pending
	}
	s.origin += cycle
	if beat-s.origin >= cycle {
		// Skipped whole cycles; resume at the current bar
		s.origin = barStart
	}
	if pos = beat - s.origin; pos >= 0 {
		s.evaluate(pos)
	}
}
