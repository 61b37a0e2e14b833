package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Snapshot is a point-in-time view of the engine and the shared clock.
type Snapshot struct {
	Enabled     bool
	Peers       uint64
	SyncEnabled bool
	Playing     bool
	Tempo       float64
	Beats       float64
	Phase       float64
	Quantum     float64
	Metro       string
}

// Metro renders one character per whole beat of the quantum: X for beats
// already reached in the current bar, O for the rest.
func Metro(quantum, phase float64) string {
	n := int(math.Floor(quantum))
	if n <= 0 {
		return ""
	}
	reached := int(math.Floor(phase))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		if i <= reached {
			b.WriteByte('X')
		} else {
			b.WriteByte('O')
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no "
}

// ReportLine formats the snapshot as the pipe-delimited status line
func (s Snapshot) ReportLine() string {
	transport := "[stopped]"
	if s.Playing {
		transport = "[playing]"
	}
	return fmt.Sprintf("%s | %d | %d | %s | %s | %.2f | %.2f | %s",
		yesNo(s.Enabled),
		s.Peers,
		int(s.Quantum),
		yesNo(s.SyncEnabled),
		transport,
		s.Tempo,
		s.Beats,
		s.Metro,
	)
}

// args encodes the snapshot as a status reply
func (s Snapshot) args() []string {
	return []string{
		strconv.FormatBool(s.Enabled),
		strconv.FormatUint(s.Peers, 10),
		strconv.FormatBool(s.SyncEnabled),
		strconv.FormatBool(s.Playing),
		formatFloat(s.Tempo),
		formatFloat(s.Beats),
		formatFloat(s.Phase),
		formatFloat(s.Quantum),
		s.Metro,
	}
}

func parseSnapshot(args []string) (Snapshot, error) {
	var s Snapshot
	if len(args) != 9 {
		return s, errors.Errorf("expected 9 fields, got %d", len(args))
	}
	var err error
	if s.Enabled, err = strconv.ParseBool(args[0]); err != nil {
		return s, errors.Wrap(err, "enabled")
	}
	if s.Peers, err = strconv.ParseUint(args[1], 10, 64); err != nil {
		return s, errors.Wrap(err, "peers")
	}
	if s.SyncEnabled, err = strconv.ParseBool(args[2]); err != nil {
		return s, errors.Wrap(err, "sync")
	}
	if s.Playing, err = strconv.ParseBool(args[3]); err != nil {
		return s, errors.Wrap(err, "playing")
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"tempo", &s.Tempo},
		{"beats", &s.Beats},
		{"phase", &s.Phase},
		{"quantum", &s.Quantum},
	}
	for i, f := range floats {
		if *f.dst, err = strconv.ParseFloat(args[4+i], 64); err != nil {
			return s, errors.Wrap(err, f.name)
		}
	}
	s.Metro = args[8]
	return s, nil
}
