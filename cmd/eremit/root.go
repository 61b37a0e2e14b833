package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-eremit/config"
	"go-eremit/debug"
)

var (
	configPath string
	debugFlag  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eremit",
	Short: "Tempo-synced clock engine driving MIDI streams",
	Long: `eremit keeps a shared musical timeline (tempo, beat, phase) in sync
with its peers and plays scheduled events into a MIDI output once per bar.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return errors.Wrap(err, "loading config")
		}
		if debugFlag {
			cfg.Debug = true
		}
		if cfg.Debug {
			if err := debug.Enable(""); err != nil {
				return errors.Wrap(err, "enabling debug log")
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/go-eremit/config.yaml)")
	flags.BoolVarP(&debugFlag, "debug", "d", false, "write a debug log to "+debug.DefaultPath())
}
