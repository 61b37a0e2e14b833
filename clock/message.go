package clock

import (
	"strings"

	"github.com/pkg/errors"
)

// Message is the wire shape of both commands and replies.
type Message struct {
	Name string
	Args []string
}

func (m Message) String() string {
	if len(m.Args) == 0 {
		return m.Name
	}
	return m.Name + " " + strings.Join(m.Args, " ")
}

// ParseLine splits a whitespace separated command line into a Message.
func ParseLine(line string) (Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Message{}, errors.New("empty command")
	}
	return Message{Name: fields[0], Args: fields[1:]}, nil
}

// Command names
const (
	CmdReport           = "report"
	CmdGetTempo         = "get_tempo"
	CmdGetPhase         = "get_phase"
	CmdBeats            = "beats"
	CmdPeers            = "peers"
	CmdSubscribers      = "subscribers"
	CmdSetTempo         = "set_tempo"
	CmdPlay             = "play"
	CmdSync             = "sync"
	CmdAddSubscriber    = "add_subscriber"
	CmdRemoveSubscriber = "remove_subscriber"
	CmdStatus           = "status"
	CmdNextPhase        = "next_phase"
	CmdGetQuantum       = "get_quantum"
	CmdSetQuantum       = "set_quantum"
	CmdAddEvent         = "add_event"
	CmdClearEvents      = "clear_events"
	CmdUnix             = "unix"
	CmdQuit             = "quit"
)
