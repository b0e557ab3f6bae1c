package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gymgate/gymgate/internal/output"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path> <file>",
	Short: "Upload a file as multipart form data",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("field", "file", "multipart form field name")
}

func runUpload(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat()
	if err != nil {
		return err
	}
	field, err := cmd.Flags().GetString("field")
	if err != nil {
		return err
	}

	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close() // nolint:errcheck // read-only file

	client, _, cleanup, err := buildClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	body, err := client.Upload(cmd.Context(), args[0], field, filepath.Base(args[1]), f)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}

	rendered, err := output.FormatBody(format, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}
