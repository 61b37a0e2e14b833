//go:build link

package link

import (
	"essaim.dev/al"
)

// Ableton is a Link backed by the Ableton Link SDK.
type Ableton struct {
	link *al.Link
}

// New returns the networked clock when built with the link tag.
func New(bpm float64) Link {
	return NewAbleton(bpm)
}

func NewAbleton(bpm float64) *Ableton {
	return &Ableton{link: al.NewLink(bpm)}
}

func (a *Ableton) Enable(enabled bool) {
	a.link.Enable(enabled)
}

func (a *Ableton) IsEnabled() bool {
	return a.link.IsEnabled()
}

func (a *Ableton) EnableStartStopSync(enabled bool) {
	a.link.EnableStartStopSync(enabled)
}

func (a *Ableton) IsStartStopSyncEnabled() bool {
	return a.link.IsStartStopSyncEnabled()
}

func (a *Ableton) NumPeers() uint64 {
	return uint64(a.link.NumPeers())
}

func (a *Ableton) Clock() int64 {
	return int64(a.link.Clock())
}

func (a *Ableton) NewSessionState() SessionState {
	return &abletonState{state: al.NewSessionState()}
}

func (a *Ableton) CaptureAppSessionState(state SessionState) {
	if st, ok := state.(*abletonState); ok {
		a.link.CaptureAppSessionState(st.state)
	}
}

func (a *Ableton) CommitAppSessionState(state SessionState) {
	if st, ok := state.(*abletonState); ok {
		a.link.CommitAppSessionState(st.state)
	}
}

func (a *Ableton) Close() error {
	a.link.Enable(false)
	a.link.Close()
	return nil
}

type abletonState struct {
	state *al.SessionState
}

func (s *abletonState) Tempo() float64 {
	return s.state.Tempo()
}

func (s *abletonState) SetTempo(bpm float64, atMicros int64) {
	s.state.SetTempo(bpm, atMicros)
}

func (s *abletonState) BeatAtTime(atMicros int64, quantum float64) float64 {
	return s.state.BeatAtTime(atMicros, quantum)
}

func (s *abletonState) PhaseAtTime(atMicros int64, quantum float64) float64 {
	return s.state.PhaseAtTime(atMicros, quantum)
}

func (s *abletonState) TimeAtBeat(beat float64, quantum float64) int64 {
	return s.state.TimeAtBeat(beat, quantum)
}

func (s *abletonState) IsPlaying() bool {
	return s.state.IsPlaying()
}

func (s *abletonState) SetIsPlaying(playing bool, atMicros int64) {
	s.state.SetIsPlaying(playing, uint64(atMicros))
}

func (s *abletonState) SetIsPlayingAndRequestBeatAtTime(playing bool, atMicros int64, beat float64, quantum float64) {
	s.state.SetIsPlayingAndRequestBeatAtTime(playing, uint64(atMicros), beat, quantum)
}
