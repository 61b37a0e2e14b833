package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-eremit/config"
)

var writeConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML. With --write it is saved to
the config file, creating it with defaults on first use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if writeConfig {
			path := configPath
			if path == "" {
				var err error
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configCmd.Flags().BoolVarP(&writeConfig, "write", "w", false, "save to the config file")
	rootCmd.AddCommand(configCmd)
}
