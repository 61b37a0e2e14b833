package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-eremit/clock"
	"go-eremit/theme"
)

func newTestModel() Model {
	return NewModel(nil, theme.New(nil), NewLogWriter())
}

func TestEnterQueuesCommandAndHistory(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("  set_tempo 90 ")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("no command for submitted line")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	if len(m.history) != 1 || m.history[0] != "set_tempo 90" {
		t.Errorf("history = %v", m.history)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.input.Value() != "set_tempo 90" {
		t.Errorf("up recalled %q", m.input.Value())
	}
}

func TestHelpIsLocal(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("help")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("help sent to engine")
	}
	if !strings.Contains(strings.Join(next.(Model).log, "\n"), "add_subscriber") {
		t.Fatal("help text missing")
	}
}

func TestRepliesAndErrorsAreLogged(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(replyMsg{line: "get_tempo", reply: clock.Message{Name: "get_tempo", Args: []string{"120"}}})
	next, _ = next.Update(replyMsg{line: "set_tempo x", err: &clock.ProtocolError{Command: "x"}})
	log := next.(Model).log
	if len(log) != 2 || log[0] != "120" || !strings.HasPrefix(log[1], "error:") {
		t.Fatalf("log = %q", log)
	}
}

func TestClosedEngineQuits(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(statusMsg{err: clock.ErrChannelClosed})
	if !next.(Model).quitting || cmd == nil {
		t.Fatal("model kept running after engine exit")
	}
}

func TestLogIsBounded(t *testing.T) {
	m := newTestModel()
	for i := 0; i < logLines*2; i++ {
		m.appendLog("line")
	}
	if len(m.log) != logLines {
		t.Fatalf("log has %d lines", len(m.log))
	}
}

func TestLogWriterSplitsLines(t *testing.T) {
	w := NewLogWriter()
	w.Write([]byte("first\nsec"))
	w.Write([]byte("ond\n"))
	for _, want := range []string{"first", "second"} {
		if got := <-w.lines; got != want {
			t.Fatalf("line = %q, want %q", got, want)
		}
	}
	select {
	case extra := <-w.lines:
		t.Fatalf("unexpected line %q", extra)
	default:
	}
}

func TestViewShowsKeyHelp(t *testing.T) {
	view := newTestModel().View()
	for _, want := range []string{"enter", "run", "exit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD} {
		next, cmd := newTestModel().Update(tea.KeyMsg{Type: k})
		if !next.(Model).quitting || cmd == nil {
			t.Errorf("%v did not quit", k)
		}
	}
}
