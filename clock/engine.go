// Package clock runs the tick loop that owns the shared session state, the
// quantum and the subscriber registry. Everything outside the engine
// goroutine talks to it through the control channel (see Client).
package clock

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"go-eremit/debug"
	"go-eremit/link"
	"go-eremit/midi"
	"go-eremit/stream"
)

const (
	// DefaultPeriod is the nominal tick period
	DefaultPeriod = 20 * time.Millisecond

	// DefaultQuantum is the number of beats in a bar
	DefaultQuantum = 4.0
)

// Subscriber is notified on every tick with the current quantum, beat and
// bar. It is only ever called from the engine goroutine.
type Subscriber interface {
	Name() string
	NotifyTick(quantum, beat float64, bar int64)
}

// transportListener is implemented by subscribers that follow the
// transport. The engine calls it when playing starts or stops, whether
// locally or through start/stop sync, and once on registration.
type transportListener interface {
	TransportStarted()
	TransportStopped()
}

// eventSink is implemented by subscribers that accept scheduled events
type eventSink interface {
	Add(ev *stream.Event)
	Clear()
}

// owners maps a link.Link to the engine currently running on it
var owners sync.Map

// Engine is the single owner of the session state. Create it with
// NewEngine, start it with Run and talk to it through Client.
type Engine struct {
	link    link.Link
	state   link.SessionState
	quantum float64
	period  time.Duration
	running bool

	sink  midi.Sink
	subs  []Subscriber
	names map[string]Subscriber

	held    float64 // beat reported while the transport is stopped
	playing bool    // transport state last announced to subscribers

	wall   func() time.Time
	report io.Writer

	commands *mailbox[Message]
	replies  *mailbox[Message]
	client   *Client
	ran      atomic.Bool
}

// Option configures an Engine
type Option func(*Engine)

// WithQuantum sets the beats per bar. Non-positive values are ignored.
func WithQuantum(q float64) Option {
	return func(e *Engine) {
		if q > 0 && !math.IsInf(q, 0) {
			e.quantum = q
		}
	}
}

// WithPeriod sets the tick period
func WithPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.period = d
		}
	}
}

// WithReportWriter sets where report lines are printed (stdout by default)
func WithReportWriter(w io.Writer) Option {
	return func(e *Engine) {
		e.report = w
	}
}

// WithSubscribers registers subscribers before the engine starts
func WithSubscribers(subs ...Subscriber) Option {
	return func(e *Engine) {
		for _, s := range subs {
			e.register(s)
		}
	}
}

// WithWallClock replaces time.Now for unix and next_phase replies
func WithWallClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.wall = now
	}
}

// NewEngine creates an engine bound to l. Streams created by
// add_subscriber write into sink; a nil sink only logs.
func NewEngine(l link.Link, sink midi.Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = midi.Log()
	}
	e := &Engine{
		link:     l,
		state:    l.NewSessionState(),
		quantum:  DefaultQuantum,
		period:   DefaultPeriod,
		running:  true,
		sink:     sink,
		names:    make(map[string]Subscriber),
		wall:     time.Now,
		report:   os.Stdout,
		commands: newMailbox[Message](),
		replies:  newMailbox[Message](),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = &Client{commands: e.commands, replies: e.replies}
	return e
}

// Client returns the caller side of the control channel
func (e *Engine) Client() *Client {
	return e.client
}

// Run executes the tick loop until a quit command is processed or ctx is
// done. Only one engine may run on a given link at a time.
func (e *Engine) Run(ctx context.Context) error {
	if !e.ran.CompareAndSwap(false, true) {
		return ErrChannelClosed
	}
	if _, loaded := owners.LoadOrStore(e.link, e); loaded {
		e.shutdown()
		return ErrLinkInUse
	}
	defer owners.Delete(e.link)
	defer e.shutdown()

	debug.Log("clock", "engine started: quantum=%.2f period=%s", e.quantum, e.period)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	next := time.Now()
	for {
		e.tick()
		if !e.running {
			debug.Log("clock", "engine stopped")
			return nil
		}

		var wait time.Duration
		next, wait = nextDeadline(next, time.Now(), e.period)
		if wait <= 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// shutdown closes both mailboxes so pending and later calls fail with
// ErrChannelClosed, and releases every subscriber.
func (e *Engine) shutdown() {
	e.commands.close()
	e.replies.close()
	for _, s := range e.subs {
		closeSubscriber(s)
	}
}

// nextDeadline advances prev by one period. When that deadline has already
// passed it skips the missed whole periods and returns a zero wait, so a
// late tick never turns into a burst of back-to-back ticks.
func nextDeadline(prev, now time.Time, period time.Duration) (time.Time, time.Duration) {
	next := prev.Add(period)
	wait := next.Sub(now)
	if wait >= 0 {
		return next, wait
	}
	missed := -wait / period
	if missed > 0 {
		debug.LogEvery(50, "clock", "tick overrun: skipped %d periods", missed)
	}
	return next.Add(missed * period), 0
}

func (e *Engine) tick() {
	for _, m := range e.commands.drain() {
		if !e.running {
			debug.Log("clock", "dropped %s after quit", m.Name)
			continue
		}
		e.handle(m)
	}

	e.capture()
	if p := e.state.IsPlaying(); p != e.playing {
		e.playing = p
		for _, s := range e.subs {
			e.announce(s)
		}
	}
	beat, _ := e.position(e.link.Clock())
	bar := int64(math.Floor(beat / e.quantum))
	for _, s := range e.subs {
		e.notify(s, beat, bar)
	}
}

func (e *Engine) capture() {
	e.link.CaptureAppSessionState(e.state)
}

// position returns the reported beat and phase at now. While stopped the
// beat stays where the transport stopped.
func (e *Engine) position(now int64) (beat, phase float64) {
	if !e.state.IsPlaying() {
		return e.held, link.Phase(e.held, e.quantum)
	}
	beat = e.state.BeatAtTime(now, e.quantum)
	phase = e.state.PhaseAtTime(now, e.quantum)
	if phase < 0 || phase >= e.quantum || math.IsNaN(phase) {
		phase = link.Phase(beat, e.quantum)
	}
	e.held = beat
	return beat, phase
}

func (e *Engine) notify(s Subscriber, beat float64, bar int64) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogEvery(10, "clock", "subscriber %s panicked: %v", s.Name(), r)
		}
	}()
	s.NotifyTick(e.quantum, beat, bar)
}

// announce tells s the current transport state
func (e *Engine) announce(s Subscriber) {
	t, ok := s.(transportListener)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Log("clock", "subscriber %s panicked on transport change: %v", s.Name(), r)
		}
	}()
	if e.playing {
		t.TransportStarted()
	} else {
		t.TransportStopped()
	}
}

// mutate brackets fn with a capture and a commit. If fn panics the partial
// change is discarded by capturing again instead of committing.
func (e *Engine) mutate(fn func(st link.SessionState, now int64)) (err error) {
	e.capture()
	now := e.link.Clock()
	defer func() {
		if r := recover(); r != nil {
			e.capture()
			err = errors.Errorf("session mutation panicked: %v", r)
		}
	}()
	fn(e.state, now)
	e.link.CommitAppSessionState(e.state)
	return nil
}

func (e *Engine) reply(name string, args ...string) {
	if err := e.replies.send(Message{Name: name, Args: args}); err != nil {
		debug.Log("clock", "reply %s: %v", name, err)
	}
}

func (e *Engine) handle(m Message) {
	cmd, err := Decode(m)
	if err != nil {
		debug.Log("clock", "rejected %s: %v", m, err)
		return
	}

	replied := false
	defer func() {
		if r := recover(); r != nil {
			debug.Log("clock", "command %s panicked: %v", m, r)
			if cmd.Query() && !replied {
				// empty reply fails the caller instead of leaving it blocked
				e.reply(m.Name)
			}
		}
	}()

	if cmd.Query() {
		name, args := e.answer(cmd)
		replied = true
		e.reply(name, args...)
		return
	}
	if err := e.apply(cmd); err != nil {
		debug.Log("clock", "%s: %v", m, err)
	}
}

// answer computes the reply for a query command
func (e *Engine) answer(cmd Command) (string, []string) {
	name := cmd.Message().Name
	switch cmd.(type) {
	case GetTempo:
		e.capture()
		return name, []string{formatFloat(e.state.Tempo())}
	case GetPhase:
		e.capture()
		_, phase := e.position(e.link.Clock())
		return name, []string{formatFloat(phase)}
	case Beats:
		e.capture()
		beat, _ := e.position(e.link.Clock())
		return name, []string{formatFloat(beat)}
	case Peers:
		return name, []string{strconv.FormatUint(e.link.NumPeers(), 10)}
	case Subscribers:
		return name, []string{strconv.Itoa(len(e.subs))}
	case Status:
		return name, e.snapshot().args()
	case NextPhase:
		return name, []string{strconv.FormatInt(e.nextPhaseBoundary().UnixMilli(), 10)}
	case GetQuantum:
		return name, []string{formatFloat(e.quantum)}
	case Unix:
		secs := float64(e.wall().UnixNano()) / float64(time.Second)
		return name, []string{formatFloat(secs)}
	}
	return name, nil
}

// apply executes a command that has no reply
func (e *Engine) apply(cmd Command) error {
	switch c := cmd.(type) {
	case Report:
		e.printReport()
	case SetTempo:
		return e.mutate(func(st link.SessionState, now int64) {
			st.SetTempo(c.BPM, now)
		})
	case Play:
		return e.togglePlay()
	case Sync:
		e.link.EnableStartStopSync(!e.link.IsStartStopSyncEnabled())
	case AddSubscriber:
		if !e.register(stream.New(c.Name, e.sink)) {
			debug.Log("clock", "subscriber %q already registered", c.Name)
		}
	case RemoveSubscriber:
		if !e.unregister(c.Name) {
			debug.Log("clock", "no subscriber %q", c.Name)
		}
	case SetQuantum:
		e.quantum = c.Quantum
	case AddEvent:
		s, err := e.events(c.Stream)
		if err != nil {
			return err
		}
		s.Add(c.Event)
	case ClearEvents:
		s, err := e.events(c.Stream)
		if err != nil {
			return err
		}
		s.Clear()
	case Quit:
		e.running = false
	case Unknown:
		debug.Log("clock", "%v: %s", ErrUnknownCommand, c.Msg)
	}
	return nil
}

func (e *Engine) togglePlay() error {
	return e.mutate(func(st link.SessionState, now int64) {
		if st.IsPlaying() {
			e.held = st.BeatAtTime(now, e.quantum)
			st.SetIsPlaying(false, now)
			debug.Log("clock", "stop at beat %.2f", e.held)
			return
		}
		st.SetIsPlayingAndRequestBeatAtTime(true, now, 0, e.quantum)
		e.held = st.BeatAtTime(now, e.quantum)
		debug.Log("clock", "play from beat %.2f", e.held)
	})
}

// nextPhaseBoundary is the wall clock time at which the next bar starts.
// At phase exactly 0 that is a full quantum ahead.
func (e *Engine) nextPhaseBoundary() time.Time {
	e.capture()
	now := e.link.Clock()
	beat := e.state.BeatAtTime(now, e.quantum)
	phase := link.Phase(beat, e.quantum)
	target := e.state.TimeAtBeat(beat+(e.quantum-phase), e.quantum)
	return e.wall().Add(time.Duration(target-now) * time.Microsecond)
}

func (e *Engine) snapshot() Snapshot {
	e.capture()
	beat, phase := e.position(e.link.Clock())
	return Snapshot{
		Enabled:     e.link.IsEnabled(),
		Peers:       e.link.NumPeers(),
		SyncEnabled: e.link.IsStartStopSyncEnabled(),
		Playing:     e.state.IsPlaying(),
		Tempo:       e.state.Tempo(),
		Beats:       beat,
		Phase:       phase,
		Quantum:     e.quantum,
		Metro:       Metro(e.quantum, phase),
	}
}

func (e *Engine) printReport() {
	line := e.snapshot().ReportLine()
	debug.Log("report", "%s", line)
	if e.report != nil {
		fmt.Fprintln(e.report, line)
	}
}

func (e *Engine) register(s Subscriber) bool {
	if _, ok := e.names[s.Name()]; ok {
		return false
	}
	e.names[s.Name()] = s
	e.subs = append(e.subs, s)
	e.announce(s)
	return true
}

func (e *Engine) unregister(name string) bool {
	s, ok := e.names[name]
	if !ok {
		return false
	}
	delete(e.names, name)
	for i, sub := range e.subs {
		if sub.Name() == name {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	closeSubscriber(s)
	return true
}

func (e *Engine) events(name string) (eventSink, error) {
	s, ok := e.names[name]
	if !ok {
		return nil, errors.Errorf("no subscriber %q", name)
	}
	es, ok := s.(eventSink)
	if !ok {
		return nil, errors.Errorf("subscriber %q does not take events", name)
	}
	return es, nil
}

func closeSubscriber(s Subscriber) {
	if c, ok := s.(interface{ Close() }); ok {
		defer func() {
			if r := recover(); r != nil {
				debug.Log("clock", "closing %s panicked: %v", s.Name(), r)
			}
		}()
		c.Close()
	}
}
