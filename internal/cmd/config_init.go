package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"

	"github.com/gymgate/gymgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gymgate configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if path == "" {
			return fmt.Errorf("could not resolve a config path; pass --config")
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}

		redacted := *cfg
		if redacted.API.AuthToken != "" {
			redacted.API.AuthToken = "***"
		}
		if redacted.Store.AuthToken != "" {
			redacted.Store.AuthToken = "***"
		}

		rendered, err := yaml.Marshal(redacted)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(rendered))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
