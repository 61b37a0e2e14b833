package clock

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrChannelClosed is returned by calls made after the engine stopped.
	ErrChannelClosed = errors.New("clock: control channel closed")

	// ErrUnknownCommand marks a message whose name the engine does not handle.
	ErrUnknownCommand = errors.New("clock: unknown command")

	// ErrLinkInUse is returned by Run when another engine owns the link.
	ErrLinkInUse = errors.New("clock: link already owned by a running engine")
)

// ProtocolError reports a reply that does not match what the query expects.
// Only the call that received it fails.
type ProtocolError struct {
	Command string
	Reply   Message
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("clock: protocol violation on %s (reply %s): %v", e.Command, e.Reply, e.Err)
}

func (e *ProtocolError) Cause() error  { return e.Err }
func (e *ProtocolError) Unwrap() error { return e.Err }
