package cmd

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var downloadCmd = &cobra.Command{
	Use:   "download <path>",
	Short: "Download a file, bypassing the response cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringP("out", "O", "", "output file (defaults to the last path segment, '-' for stdout)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	client, _, cleanup, err := buildClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	body, contentType, err := client.Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if out == "-" {
		if _, err := cmd.OutOrStdout().Write(body); err != nil {
			return fmt.Errorf("write download: %w", err)
		}
		return nil
	}

	if out == "" {
		out = path.Base(args[0])
		if out == "" || out == "/" || out == "." {
			out = "download"
		}
	}

	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	cliLogger.Info("download complete",
		zap.String("file", out),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(body)))
	return nil
}
