package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/output"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Fetch an API path through the cache",
	Long: `Fetch an API path. Responses are cached for the configured TTL;
repeated calls within the TTL are served locally without touching the
backend or consuming a rate-limit slot.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().Duration("ttl", 0, "cache TTL override for this request")
	getCmd.Flags().Bool("no-cache", false, "skip cache lookup and storage")
	getCmd.Flags().String("rate-key", "", "rate-limit key override")
}

func runGet(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat()
	if err != nil {
		return err
	}

	ttl, err := cmd.Flags().GetDuration("ttl")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	rateKey, err := cmd.Flags().GetString("rate-key")
	if err != nil {
		return err
	}

	client, _, cleanup, err := buildClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := make([]apiclient.RequestOption, 0, 3)
	if ttl > 0 {
		opts = append(opts, apiclient.WithTTL(ttl))
	}
	if noCache {
		opts = append(opts, apiclient.WithoutCache())
	}
	if rateKey != "" {
		opts = append(opts, apiclient.WithRateKey(rateKey))
	}

	started := time.Now()
	body, err := client.Get(cmd.Context(), args[0], opts...)
	if err != nil {
		return err
	}

	rendered, err := output.FormatBody(format, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)

	if verbose {
		stats := client.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s in %s (cache hits %d, misses %d)\n",
			args[0], time.Since(started).Round(time.Millisecond), stats.CacheHits, stats.CacheMisses)
	}
	return nil
}
