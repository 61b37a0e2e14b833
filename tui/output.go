package tui

import (
	"strings"
	"sync"

	"go-eremit/debug"
)

// LogWriter collects lines written by the engine (report output) for the
// model to display. Write never blocks; lines are dropped when the model
// falls behind.
type LogWriter struct {
	mu    sync.Mutex
	part  string
	lines chan string
}

func NewLogWriter() *LogWriter {
	return &LogWriter{lines: make(chan string, 64)}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	text := w.part + string(p)
	parts := strings.Split(text, "\n")
	w.part = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		select {
		case w.lines <- line:
		default:
			debug.LogEvery(10, "tui", "output dropped: %s", line)
		}
	}
	return len(p), nil
}
