package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymgate/gymgate/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show client cache and rate-limiter counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat()
	if err != nil {
		return err
	}

	client, _, cleanup, err := buildClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := client.Stats()

	switch format {
	case output.FormatJSON:
		rendered, err := output.MarshalIndented(stats)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), output.StatsTable(stats, format == output.FormatMarkdown))
	}
	return nil
}
