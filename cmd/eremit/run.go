package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-eremit/clock"
	"go-eremit/config"
	"go-eremit/debug"
	"go-eremit/link"
	"go-eremit/midi"
	"go-eremit/theme"
	"go-eremit/tui"
)

var runFlags struct {
	tempo    float64
	quantum  float64
	port     string
	noMIDI   bool
	sync     bool
	headless bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the clock engine",
	Long: `Start the clock engine with an interactive command line. With
--headless, commands are read line by line from stdin and replies are
written to stdout, for driving the engine from a script.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("tempo") {
			cfg.Link.Tempo = runFlags.tempo
		}
		if flags.Changed("quantum") {
			cfg.Link.Quantum = runFlags.quantum
		}
		if flags.Changed("port") {
			cfg.MIDI.Port = runFlags.port
		}
		if flags.Changed("no-midi") {
			cfg.MIDI.Disabled = runFlags.noMIDI
		}
		if flags.Changed("sync") {
			cfg.Link.StartStopSync = runFlags.sync
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg, runFlags.headless, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	flags := runCmd.Flags()
	flags.Float64VarP(&runFlags.tempo, "tempo", "t", 120, "tempo in bpm")
	flags.Float64VarP(&runFlags.quantum, "quantum", "q", 4, "beats per bar")
	flags.StringVarP(&runFlags.port, "port", "p", "", "MIDI output port (name or part of it)")
	flags.BoolVar(&runFlags.noMIDI, "no-midi", false, "write MIDI to the debug log instead of a port")
	flags.BoolVar(&runFlags.sync, "sync", false, "enable start/stop sync with peers")
	flags.BoolVar(&runFlags.headless, "headless", false, "read commands from stdin instead of the terminal UI")
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg *config.Config, headless bool, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l := link.New(cfg.Link.Tempo)
	defer l.Close()
	l.Enable(cfg.Link.Enabled)
	l.EnableStartStopSync(cfg.Link.StartStopSync)

	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	out = &syncWriter{w: out}
	var report io.Writer = out
	var logw *tui.LogWriter
	if !headless {
		logw = tui.NewLogWriter()
		report = logw
	}

	engine := clock.NewEngine(l, sink,
		clock.WithQuantum(cfg.Link.Quantum),
		clock.WithPeriod(cfg.Engine.Period),
		clock.WithReportWriter(report),
	)
	client := engine.Client()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The front-end stops with the engine
		defer cancel()
		return engine.Run(ctx)
	})
	g.Go(func() error {
		// Stopping the front-end stops the engine
		defer client.Quit()
		if headless {
			return serveLines(ctx, client, in, out)
		}
		return runTUI(ctx, client, cfg, logw)
	})

	err = g.Wait()
	switch {
	case errors.Is(err, clock.ErrChannelClosed),
		errors.Is(err, tea.ErrProgramKilled),
		errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// openSink opens the configured MIDI output. Without an explicit port a
// failed startup falls back to the log sink.
func openSink(ctx context.Context, cfg *config.Config) (midi.Sink, func(), error) {
	if cfg.MIDI.Disabled {
		return midi.Log(), func() {}, nil
	}
	out, err := midi.Open(ctx, midi.OpenOptions{
		PortName:   cfg.MIDI.Port,
		Retries:    cfg.MIDI.Retries,
		RetryDelay: cfg.MIDI.RetryDelay,
		Ports:      midi.DriverPorts{},
	})
	if err == nil {
		return out, midi.Close, nil
	}
	var startup *midi.StartupError
	if errors.As(err, &startup) && cfg.MIDI.Port == "" {
		fmt.Fprintf(os.Stderr, "warning: %v; MIDI goes to the debug log\n", err)
		debug.Log("midi", "falling back to log sink: %v", err)
		return midi.Log(), midi.Close, nil
	}
	midi.Close()
	return nil, nil, err
}

// syncWriter serializes writes from the engine and the front-end
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runTUI(ctx context.Context, client *clock.Client, cfg *config.Config, logw *tui.LogWriter) error {
	palette, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		debug.Log("tui", "palette: %v", err)
		palette = theme.Default()
	}
	m := tui.NewModel(client, theme.New(palette), logw)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// serveLines executes one command per input line and prints query replies.
// It returns at end of input or once ctx is done; a read blocked on in is
// left behind in that case.
func serveLines(ctx context.Context, client *clock.Client, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reply, err := client.Exec(line)
		switch {
		case errors.Is(err, clock.ErrChannelClosed):
			return nil
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		case reply.Name != "":
			fmt.Fprintln(out, reply)
		}
	}
}
