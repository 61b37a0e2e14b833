package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-eremit/midi"
)

var watchPorts bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Long: `List MIDI output ports. The port the run command would pick is marked
with *. With --watch, keep polling and print ports as they come and go.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer midi.Close()

		out := cmd.OutOrStdout()
		ports := midi.DriverPorts{Timeout: 3 * time.Second}
		if watchPorts {
			return watch(cmd, ports, out)
		}

		fmt.Fprintln(out, "=== MIDI Output Ports ===")
		fmt.Fprintln(out, "(waiting up to 3 seconds...)")

		names, err := ports.OutNames()
		if errors.Is(err, midi.ErrPortScanTimeout) {
			fmt.Fprintln(out, "\nTIMEOUT! CoreMIDI is hung.")
			fmt.Fprintln(out, "Fix: sudo killall coreaudiod midiserver")
			return err
		}
		if err != nil {
			return err
		}

		selected, _ := midi.SelectPort(names, cfg.MIDI.Port)
		for i, name := range names {
			mark := " "
			if name == selected {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %d: %s\n", mark, i, name)
		}
		if len(names) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		return nil
	},
}

func watch(cmd *cobra.Command, ports midi.Ports, out io.Writer) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintln(out, "Polling for output port changes. Ctrl+C to exit.")
	w := midi.NewWatcher(ports, 2*time.Second)
	go w.Run(ctx)
	for ev := range w.Events() {
		fmt.Fprintf(out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), ev.Type, ev.Name)
	}
	return nil
}

func init() {
	portsCmd.Flags().BoolVarP(&watchPorts, "watch", "w", false, "poll for port changes")
	rootCmd.AddCommand(portsCmd)
}
