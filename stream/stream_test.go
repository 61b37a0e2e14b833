package stream

import (
	"bytes"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-eremit/midi"
)

const q = 4.0

func assertMessages(t *testing.T, rec *midi.Recorder, want ...gomidi.Message) {
	t.Helper()
	got := rec.Messages()
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("message %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNotifyTickFiresOncePerBar(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("lead", rec)
	s.Add(Note(0, 1, 60, 100, 0))

	for _, beat := range []float64{0.01, 0.5, 1.2, 2.0, 3.99} {
		s.NotifyTick(q, beat, 0)
	}
	assertMessages(t, rec, gomidi.NoteOn(0, 60, 100))

	// Next bar: note ends, then the loop restarts it
	s.NotifyTick(q, 4.02, 1)
	s.NotifyTick(q, 4.5, 1)
	assertMessages(t, rec,
		gomidi.NoteOn(0, 60, 100),
		gomidi.NoteOff(0, 60),
		gomidi.NoteOn(0, 60, 100),
	)
}

func TestPassedEventFiresStartAndEnd(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("bass", rec)
	s.Add(Note(1, 2, 36, 90, 1))

	s.NotifyTick(q, 0.01, 0)
	assertMessages(t, rec)

	s.NotifyTick(q, 4.01, 1)
	assertMessages(t, rec, gomidi.NoteOn(1, 36, 90), gomidi.NoteOff(1, 36))
}

func TestOneShotStreamStaysEnded(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("fx", rec)
	s.Loop = false
	ev := Note(0, 1, 70, 80, 2)
	s.Add(ev)

	s.NotifyTick(q, 0.01, 0)
	if ev.State() != Active {
		t.Fatalf("state = %s, want active", ev.State())
	}
	s.NotifyTick(q, 4.01, 1)
	if ev.State() != Ended {
		t.Fatalf("state = %s, want ended", ev.State())
	}
	s.NotifyTick(q, 8.01, 2)
	s.NotifyTick(q, 12.01, 3)
	assertMessages(t, rec, gomidi.NoteOn(2, 70, 80), gomidi.NoteOff(2, 70))
}

func TestLongPatternLoopsOverWholeBars(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("pad", rec)
	s.Add(Note(0, 6, 48, 70, 0)) // spans into the second bar: cycle is 8 beats

	s.NotifyTick(q, 0.01, 0)  // on
	s.NotifyTick(q, 4.01, 1)  // still sounding
	s.NotifyTick(q, 8.01, 2)  // off, loop, on
	s.NotifyTick(q, 12.01, 3) // still sounding
	assertMessages(t, rec,
		gomidi.NoteOn(0, 48, 70),
		gomidi.NoteOff(0, 48),
		gomidi.NoteOn(0, 48, 70),
	)
}

func TestTimelineRewindRestartsCycle(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("lead", rec)
	s.Add(Note(0, 2, 60, 100, 0))

	s.NotifyTick(q, 12.01, 3)
	// transport realigned to beat 0
	s.NotifyTick(q, 0.0, 0)
	assertMessages(t, rec,
		gomidi.NoteOn(0, 60, 100),
		gomidi.NoteOff(0, 60),
		gomidi.NoteOn(0, 60, 100),
	)
}

func TestStoppedTransportHoldsStreamSilent(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("lead", rec)
	s.TransportStopped()
	s.Add(Note(0, 1, 60, 100, 0))

	s.NotifyTick(q, 0.5, 0)
	s.NotifyTick(q, 4.5, 1)
	assertMessages(t, rec)

	s.TransportStarted()
	s.NotifyTick(q, 0.01, 0)
	assertMessages(t, rec, gomidi.NoteOn(0, 60, 100))

	s.TransportStopped()
	assertMessages(t, rec, gomidi.NoteOn(0, 60, 100), gomidi.NoteOff(0, 60))

	// restart in the bar already seen
	s.TransportStarted()
	s.NotifyTick(q, 0.0, 0)
	assertMessages(t, rec,
		gomidi.NoteOn(0, 60, 100),
		gomidi.NoteOff(0, 60),
		gomidi.NoteOn(0, 60, 100),
	)
}

func TestCountInWaitsForBeatZero(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("lead", rec)
	s.Add(Note(0, 1, 60, 100, 0))
	s.TransportStarted()

	s.NotifyTick(q, -1.5, -1)
	s.NotifyTick(q, -0.2, -1)
	assertMessages(t, rec)

	s.NotifyTick(q, 0.01, 0)
	assertMessages(t, rec, gomidi.NoteOn(0, 60, 100))
}

func TestClearReleasesSoundingNotes(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("lead", rec)
	s.Add(Note(0, 4, 64, 100, 3))
	s.NotifyTick(q, 0.1, 0)
	s.Clear()

	assertMessages(t, rec, gomidi.NoteOn(3, 64, 100), gomidi.NoteOff(3, 64))
	if len(s.Events()) != 0 {
		t.Fatal("events not cleared")
	}

	// empty stream is a no-op
	s.NotifyTick(q, 4.1, 1)
	assertMessages(t, rec, gomidi.NoteOn(3, 64, 100), gomidi.NoteOff(3, 64))
}

func TestAddKeepsBeginOrder(t *testing.T) {
	s := New("x", midi.NewRecorder())
	s.Add(Note(2, 3, 1, 1, 0))
	s.Add(Note(0, 1, 2, 1, 0))
	s.Add(Note(2, 2.5, 3, 1, 0))
	s.Add(Note(1, 2, 4, 1, 0))

	var notes []byte
	for _, ev := range s.Events() {
		notes = append(notes, ev.Payload[0])
	}
	if !bytes.Equal(notes, []byte{2, 4, 1, 3}) {
		t.Fatalf("order = %v", notes)
	}
}

func TestTickEventCallsHook(t *testing.T) {
	s := New("metro", midi.NewRecorder())
	ticks := 0
	s.onTick = func() { ticks++ }
	ev, err := NewEvent(KindTick, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Add(ev)

	for bar := int64(0); bar < 4; bar++ {
		s.NotifyTick(q, float64(bar)*q+0.01, bar)
		s.NotifyTick(q, float64(bar)*q+1, bar)
	}
	if ticks != 4 {
		t.Fatalf("ticks = %d, want 4", ticks)
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		args    []string
		kind    Kind
		payload []byte
		err     bool
	}{
		{[]string{"note", "0", "1", "60", "100", "0"}, KindNote, []byte{60, 100, 0}, false},
		{[]string{"CC", "0.5", "0.5", "7", "127", "1"}, KindControlChange, []byte{7, 127, 1}, false},
		{[]string{"start", "0", "0"}, KindStart, nil, false},
		{[]string{"bend", "0", "1", "0", "2"}, KindPitchBend, []byte{0, 64, 2}, false},
		{[]string{"bend", "0", "1", "-8192", "0"}, KindPitchBend, []byte{0, 0, 0}, false},
		{[]string{"note", "0", "1", "60"}, 0, nil, true},
		{[]string{"note", "2", "1", "60", "100", "0"}, 0, nil, true},
		{[]string{"note", "x", "1", "60", "100", "0"}, 0, nil, true},
		{[]string{"note", "0", "1", "600", "100", "0"}, 0, nil, true},
		{[]string{"warp", "0", "1"}, 0, nil, true},
		{[]string{"note"}, 0, nil, true},
	}
	for _, tt := range tests {
		ev, err := ParseEvent(tt.args)
		if tt.err {
			if err == nil {
				t.Errorf("ParseEvent(%v) succeeded", tt.args)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEvent(%v): %v", tt.args, err)
			continue
		}
		if ev.Kind != tt.kind || !bytes.Equal(ev.Payload, tt.payload) {
			t.Errorf("ParseEvent(%v) = %s %v", tt.args, ev.Kind, ev.Payload)
		}
	}
}

func TestPitchBendEndsCentered(t *testing.T) {
	rec := midi.NewRecorder()
	s := New("bend", rec)
	ev, err := ParseEvent([]string{"bend", "0", "1", "4096", "0"})
	if err != nil {
		t.Fatal(err)
	}
	s.Add(ev)
	s.Loop = false
	s.NotifyTick(q, 0.01, 0)
	s.NotifyTick(q, 4.01, 1)
	assertMessages(t, rec, gomidi.Pitchbend(0, 4096), gomidi.Pitchbend(0, 0))
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindTick; k <= KindReset; k++ {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}
