// Package link describes the shared tempo clock the engine synchronizes
// against. A Link hands out a network-agreed microsecond timeline; a
// SessionState is the local copy of tempo, beat origin and transport that
// is pulled with CaptureAppSessionState and pushed back with
// CommitAppSessionState.
//
// Two implementations exist: Solo, a pure-Go single-peer timeline, and
// Ableton (build tag "link"), which wraps the Ableton Link SDK.
package link

// SessionState is the local, mutable view of the shared session.
// It is only meaningful between a capture and a commit on the Link that
// created it.
type SessionState interface {
	Tempo() float64
	SetTempo(bpm float64, atMicros int64)

	BeatAtTime(atMicros int64, quantum float64) float64
	PhaseAtTime(atMicros int64, quantum float64) float64
	TimeAtBeat(beat float64, quantum float64) int64

	IsPlaying() bool
	SetIsPlaying(playing bool, atMicros int64)
	SetIsPlayingAndRequestBeatAtTime(playing bool, atMicros int64, beat float64, quantum float64)
}

// Link is the shared tempo clock.
type Link interface {
	Enable(enabled bool)
	IsEnabled() bool
	EnableStartStopSync(enabled bool)
	IsStartStopSyncEnabled() bool
	NumPeers() uint64

	// Clock returns the current timeline position in microseconds.
	Clock() int64

	NewSessionState() SessionState
	CaptureAppSessionState(state SessionState)
	CommitAppSessionState(state SessionState)

	Close() error
}

// DefaultTempo is used when no tempo is configured.
const DefaultTempo = 120.0
