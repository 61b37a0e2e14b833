package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"go-eremit/clock"
	"go-eremit/debug"
	"go-eremit/theme"
	"go-eremit/widgets"
)

const (
	statusInterval = 50 * time.Millisecond
	logLines       = 12
)

// Model is a command line front-end for the engine: every submitted line
// goes through Client.Exec, replies and report lines land in the log.
type Model struct {
	Client *clock.Client
	Theme  *theme.Theme
	Output *LogWriter

	input    textinput.Model
	help     help.Model
	status   clock.Snapshot
	stale    bool
	log      []string
	history  []string
	histPos  int
	quitting bool
}

type statusMsg struct {
	snap clock.Snapshot
	err  error
}

type replyMsg struct {
	line  string
	reply clock.Message
	err   error
}

type outputMsg string

type tickMsg time.Time

func NewModel(client *clock.Client, th *theme.Theme, out *LogWriter) Model {
	ti := textinput.New()
	ti.Prompt = th.Symbols.Prompt
	ti.Placeholder = "help"
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()
	return Model{
		Client: client,
		Theme:  th,
		Output: out,
		input:  ti,
		help:   help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		fetchStatus(m.Client),
		ListenForOutput(m.Output),
	)
}

func fetchStatus(c *clock.Client) tea.Cmd {
	return func() tea.Msg {
		s, err := c.Status()
		return statusMsg{snap: s, err: err}
	}
}

func scheduleStatus() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func execLine(c *clock.Client, line string) tea.Cmd {
	return func() tea.Msg {
		reply, err := c.Exec(line)
		return replyMsg{line: line, reply: reply, err: err}
	}
}

// ListenForOutput waits for the next line the engine printed
func ListenForOutput(w *LogWriter) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		return outputMsg(<-w.lines)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Submit):
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, line)
			m.histPos = len(m.history)
			m.appendLog(m.Theme.Symbols.Prompt + line)
			if line == "help" {
				m.appendLog(strings.Split(helpText(), "\n")...)
				return m, nil
			}
			return m, execLine(m.Client, line)

		case key.Matches(msg, keys.Prev):
			if m.histPos > 0 {
				m.histPos--
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Next):
			if m.histPos < len(m.history)-1 {
				m.histPos++
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			} else {
				m.histPos = len(m.history)
				m.input.SetValue("")
			}
			return m, nil
		}

	case statusMsg:
		if errors.Is(msg.err, clock.ErrChannelClosed) {
			m.quitting = true
			return m, tea.Quit
		}
		m.stale = msg.err != nil
		if msg.err == nil {
			m.status = msg.snap
		} else {
			debug.Log("tui", "status: %v", msg.err)
		}
		return m, scheduleStatus()

	case tickMsg:
		return m, fetchStatus(m.Client)

	case replyMsg:
		switch {
		case errors.Is(msg.err, clock.ErrChannelClosed):
			m.quitting = true
			return m, tea.Quit
		case msg.err != nil:
			m.appendLog("error: " + msg.err.Error())
		case msg.reply.Name != "":
			m.appendLog(strings.Join(msg.reply.Args, " "))
		}
		return m, nil

	case outputMsg:
		m.appendLog(string(msg))
		return m, ListenForOutput(m.Output)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) appendLog(lines ...string) {
	m.log = append(m.log, lines...)
	if over := len(m.log) - logLines; over > 0 {
		m.log = m.log[over:]
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	logStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header()))
	out.WriteString("  ")
	out.WriteString(widgets.RenderMetro(m.status.Metro, widgets.MetroStyle{
		Reached:     m.Theme.RGB(theme.RoleSuccess),
		Pending:     m.Theme.RGB(theme.RoleMuted),
		ReachedRune: m.Theme.Symbols.BeatReached,
		PendingRune: m.Theme.Symbols.BeatPending,
	}))
	out.WriteString("\n\n")

	for _, line := range m.log {
		out.WriteString(logStyle.Render(line))
		out.WriteString("\n")
	}
	for i := len(m.log); i < logLines; i++ {
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(m.input.View())
	out.WriteString("\n")
	out.WriteString(dimStyle.Render("help: commands  " + m.help.ShortHelpView(keys.ShortHelp())))
	return out.String()
}

func (m Model) header() string {
	s := m.status
	transport := m.Theme.Symbols.Stopped
	if s.Playing {
		transport = m.Theme.Symbols.Playing
	}
	sync := "off"
	if s.SyncEnabled {
		sync = "on"
	}
	stale := ""
	if m.stale {
		stale = " ?"
	}
	return fmt.Sprintf("eremit  %c %6.2fbpm  beat %8.2f  q %g  peers %d  sync %s%s",
		transport, s.Tempo, s.Beats, s.Quantum, s.Peers, sync, stale)
}

func helpText() string {
	return widgets.RenderKeyHelp([]widgets.KeySection{
		{
			Title: "Transport",
			Keys: []widgets.KeyBinding{
				{Key: "play", Desc: "start/stop"},
				{Key: "sync", Desc: "toggle start/stop sync"},
				{Key: "set_tempo <bpm>", Desc: "change tempo"},
				{Key: "set_quantum <beats>", Desc: "change bar length"},
			},
		},
		{
			Title: "Streams",
			Keys: []widgets.KeyBinding{
				{Key: "add_subscriber <name>", Desc: "new stream"},
				{Key: "remove_subscriber <name>", Desc: "drop stream"},
				{Key: "add_event <name> <kind> <begin> <end> ...", Desc: "schedule event"},
				{Key: "clear_events <name>", Desc: "empty stream"},
			},
		},
		{
			Title: "Queries",
			Keys: []widgets.KeyBinding{
				{Key: "get_tempo get_phase beats", Desc: ""},
				{Key: "peers subscribers status", Desc: ""},
				{Key: "next_phase get_quantum unix", Desc: ""},
				{Key: "report", Desc: "print status line"},
				{Key: "quit", Desc: "stop the engine"},
			},
		},
	})
}
