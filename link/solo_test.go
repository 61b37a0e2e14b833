package link

import (
	"math"
	"testing"
)

type manualTime struct {
	t int64
}

func (m *manualTime) now() int64 { return m.t }

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSoloBeatAdvancesWithTempo(t *testing.T) {
	mt := &manualTime{}
	s := NewSoloWithTime(120, mt.now)

	st := s.NewSessionState()
	mt.t = 1_000_000 // one second at 120bpm = 2 beats
	s.CaptureAppSessionState(st)

	if got := st.BeatAtTime(s.Clock(), 4); !near(got, 2) {
		t.Fatalf("beat = %v, want 2", got)
	}
	if got := st.PhaseAtTime(s.Clock(), 4); !near(got, 2) {
		t.Fatalf("phase = %v, want 2", got)
	}
}

func TestSoloSetTempoKeepsBeatContinuous(t *testing.T) {
	mt := &manualTime{}
	s := NewSoloWithTime(120, mt.now)
	st := s.NewSessionState()

	mt.t = 500_000
	s.CaptureAppSessionState(st)
	before := st.BeatAtTime(mt.t, 4)
	st.SetTempo(60, mt.t)
	s.CommitAppSessionState(st)

	s.CaptureAppSessionState(st)
	if got := st.BeatAtTime(mt.t, 4); !near(got, before) {
		t.Fatalf("beat jumped from %v to %v", before, got)
	}
	if st.Tempo() != 60 {
		t.Fatalf("tempo = %v, want 60", st.Tempo())
	}

	mt.t += 1_000_000
	if got := st.BeatAtTime(mt.t, 4); !near(got, before+1) {
		t.Fatalf("beat = %v, want %v", got, before+1)
	}
}

func TestSoloIgnoresInvalidTempo(t *testing.T) {
	s := NewSoloWithTime(120, func() int64 { return 0 })
	st := s.NewSessionState()
	for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		st.SetTempo(bpm, 0)
		if st.Tempo() != 120 {
			t.Fatalf("SetTempo(%v) changed tempo to %v", bpm, st.Tempo())
		}
	}
}

func TestSoloUncommittedChangesStayLocal(t *testing.T) {
	mt := &manualTime{}
	s := NewSoloWithTime(120, mt.now)
	a := s.NewSessionState()
	b := s.NewSessionState()

	a.SetTempo(90, 0)
	s.CaptureAppSessionState(b)
	if b.Tempo() != 120 {
		t.Fatalf("uncommitted tempo leaked: %v", b.Tempo())
	}

	s.CommitAppSessionState(a)
	s.CaptureAppSessionState(b)
	if b.Tempo() != 90 {
		t.Fatalf("committed tempo not visible: %v", b.Tempo())
	}
}

func TestSoloRequestBeatAtTime(t *testing.T) {
	mt := &manualTime{t: 3_300_000}
	s := NewSoloWithTime(120, mt.now)
	st := s.NewSessionState()
	s.CaptureAppSessionState(st)

	st.SetIsPlayingAndRequestBeatAtTime(true, mt.t, 0, 4)
	if !st.IsPlaying() {
		t.Fatal("expected playing")
	}
	if got := st.BeatAtTime(mt.t, 4); got != 0 {
		t.Fatalf("beat = %v, want 0", got)
	}
	if got := st.TimeAtBeat(4, 4); got != mt.t+2_000_000 {
		t.Fatalf("time at beat 4 = %d, want %d", got, mt.t+2_000_000)
	}
}

func TestPhaseRange(t *testing.T) {
	tests := []struct {
		beat, quantum, want float64
	}{
		{0, 4, 0},
		{3.5, 4, 3.5},
		{4, 4, 0},
		{9.25, 4, 1.25},
		{-1, 4, 3},
		{1, 0, 0},
	}
	for _, tt := range tests {
		got := Phase(tt.beat, tt.quantum)
		if !near(got, tt.want) {
			t.Errorf("Phase(%v, %v) = %v, want %v", tt.beat, tt.quantum, got, tt.want)
		}
		if tt.quantum > 0 && (got < 0 || got >= tt.quantum) {
			t.Errorf("Phase(%v, %v) = %v out of range", tt.beat, tt.quantum, got)
		}
	}
}

func TestSoloFlags(t *testing.T) {
	s := NewSolo(0)
	if s.NumPeers() != 0 {
		t.Fatal("solo clock has peers")
	}
	s.Enable(true)
	s.EnableStartStopSync(true)
	if !s.IsEnabled() || !s.IsStartStopSyncEnabled() {
		t.Fatal("flags not set")
	}
	s.Close()
	if s.IsEnabled() {
		t.Fatal("close did not disable")
	}
	if s.NewSessionState().Tempo() != DefaultTempo {
		t.Fatal("zero tempo should fall back to default")
	}
}
