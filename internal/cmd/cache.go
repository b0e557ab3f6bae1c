package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, cleanup, err := buildClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		client.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <path>",
	Short: "Remove the cached response for one API path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, cleanup, err := buildClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		client.Invalidate(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", args[0])
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evict expired cache entries and stale rate-window slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, cleanup, err := buildClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		entries, slots := client.SweepNow()
		fmt.Fprintf(cmd.OutOrStdout(), "swept %d cache entries, %d window slots\n", entries, slots)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd, cacheInvalidateCmd, cacheSweepCmd)
}
