package midi

import (
	"context"
	"time"

	"go-eremit/debug"
)

// PortEvent is emitted when an output port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

func (t PortEventType) String() string {
	if t == PortConnected {
		return "connected"
	}
	return "disconnected"
}

// Watcher polls for output port hot-plug
type Watcher struct {
	ports    Ports
	known    map[string]bool
	events   chan PortEvent
	pollRate time.Duration
}

// NewWatcher creates a watcher polling ports every pollRate
func NewWatcher(ports Ports, pollRate time.Duration) *Watcher {
	if ports == nil {
		ports = DriverPorts{}
	}
	if pollRate <= 0 {
		pollRate = time.Second
	}
	return &Watcher{
		ports:    ports,
		known:    make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: pollRate,
	}
}

// Events returns the channel of connect/disconnect events. It is closed
// when Run returns.
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine). The first scan
// reports every port already present as connected.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	names, err := w.ports.OutNames()
	if err != nil {
		// Hung driver: skip this scan
		debug.LogEvery(10, "midi", "port scan: %v", err)
		return
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
		if !w.known[name] {
			w.known[name] = true
			w.emit(ctx, PortEvent{Type: PortConnected, Name: name})
		}
	}
	for name := range w.known {
		if !seen[name] {
			delete(w.known, name)
			w.emit(ctx, PortEvent{Type: PortDisconnected, Name: name})
		}
	}
}

func (w *Watcher) emit(ctx context.Context, ev PortEvent) {
	debug.Log("midi", "port %s: %s", ev.Type, ev.Name)
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
