package link

import (
	"math"
	"sync"
	"time"
)

// timeline maps microseconds to beats: beat = beatOrigin + (t-timeOrigin) * tempo/60e6
type timeline struct {
	tempo      float64
	beatOrigin float64
	timeOrigin int64
	playing    bool
}

func (tl timeline) beatAt(at int64) float64 {
	return tl.beatOrigin + float64(at-tl.timeOrigin)*tl.tempo/60e6
}

func (tl timeline) timeAt(beat float64) int64 {
	return tl.timeOrigin + int64(math.Round((beat-tl.beatOrigin)*60e6/tl.tempo))
}

// SoloState is the session state handed out by Solo.
type SoloState struct {
	tl timeline
}

func (s *SoloState) Tempo() float64 {
	return s.tl.tempo
}

// SetTempo changes tempo keeping the beat at atMicros continuous.
// Non-positive or non-finite values are ignored.
func (s *SoloState) SetTempo(bpm float64, atMicros int64) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return
	}
	beat := s.tl.beatAt(atMicros)
	s.tl.beatOrigin = beat
	s.tl.timeOrigin = atMicros
	s.tl.tempo = bpm
}

func (s *SoloState) BeatAtTime(atMicros int64, quantum float64) float64 {
	return s.tl.beatAt(atMicros)
}

func (s *SoloState) PhaseAtTime(atMicros int64, quantum float64) float64 {
	return Phase(s.tl.beatAt(atMicros), quantum)
}

func (s *SoloState) TimeAtBeat(beat float64, quantum float64) int64 {
	return s.tl.timeAt(beat)
}

func (s *SoloState) IsPlaying() bool {
	return s.tl.playing
}

func (s *SoloState) SetIsPlaying(playing bool, atMicros int64) {
	s.tl.playing = playing
}

// SetIsPlayingAndRequestBeatAtTime maps beat onto atMicros. With no other
// peers to agree with, the request is forced rather than phase aligned.
func (s *SoloState) SetIsPlayingAndRequestBeatAtTime(playing bool, atMicros int64, beat float64, quantum float64) {
	s.tl.playing = playing
	s.tl.beatOrigin = beat
	s.tl.timeOrigin = atMicros
}

// Solo is a Link with no network: it always reports zero peers and keeps
// the shared session in process.
type Solo struct {
	mu            sync.Mutex
	shared        timeline
	enabled       bool
	startStopSync bool
	now           func() int64
}

// NewSolo creates a solo clock whose timeline starts at zero now.
func NewSolo(bpm float64) *Solo {
	start := time.Now()
	return NewSoloWithTime(bpm, func() int64 {
		return time.Since(start).Microseconds()
	})
}

// NewSoloWithTime creates a solo clock reading the timeline from now.
func NewSoloWithTime(bpm float64, now func() int64) *Solo {
	if !(bpm > 0) {
		bpm = DefaultTempo
	}
	return &Solo{
		shared: timeline{tempo: bpm, timeOrigin: now()},
		now:    now,
	}
}

func (s *Solo) Enable(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *Solo) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Solo) EnableStartStopSync(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startStopSync = enabled
}

func (s *Solo) IsStartStopSyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startStopSync
}

func (s *Solo) NumPeers() uint64 {
	return 0
}

func (s *Solo) Clock() int64 {
	return s.now()
}

func (s *Solo) NewSessionState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SoloState{tl: s.shared}
}

// CaptureAppSessionState copies the shared session into state.
// States not created by a Solo are left untouched.
func (s *Solo) CaptureAppSessionState(state SessionState) {
	st, ok := state.(*SoloState)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.tl = s.shared
}

func (s *Solo) CommitAppSessionState(state SessionState) {
	st, ok := state.(*SoloState)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = st.tl
}

func (s *Solo) Close() error {
	s.Enable(false)
	return nil
}

// Phase returns beat modulo quantum, always in [0, quantum).
func Phase(beat, quantum float64) float64 {
	if !(quantum > 0) {
		return 0
	}
	p := math.Mod(beat, quantum)
	if p < 0 {
		p += quantum
	}
	if p >= quantum {
		p = 0
	}
	return p
}
