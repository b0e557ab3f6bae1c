package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/output"
)

func init() {
	rootCmd.AddCommand(
		newSendCommand(http.MethodPost, "post <path>", "Send a POST request with a JSON payload"),
		newSendCommand(http.MethodPut, "put <path>", "Send a PUT request with a JSON payload"),
		newSendCommand(http.MethodPatch, "patch <path>", "Send a PATCH request with a JSON payload"),
		newDeleteCommand(),
	)
}

// newSendCommand builds one of the body-carrying verb commands. The
// payload comes from --data, --file, or stdin, and is sanitized before
// dispatch.
func newSendCommand(method, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd)
			if err != nil {
				return err
			}
			return runSend(cmd, method, args[0], payload)
		},
	}

	cmd.Flags().StringP("data", "d", "", "inline JSON payload")
	cmd.Flags().StringP("file", "f", "", "file with JSON payload ('-' for stdin)")
	cmd.Flags().String("rate-key", "", "rate-limit key override")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Send a DELETE request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, http.MethodDelete, args[0], nil)
		},
	}

	cmd.Flags().String("rate-key", "", "rate-limit key override")
	return cmd
}

func readPayload(cmd *cobra.Command) (any, error) {
	data, err := cmd.Flags().GetString("data")
	if err != nil {
		return nil, err
	}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}

	var raw []byte
	switch {
	case data != "" && file != "":
		return nil, fmt.Errorf("--data and --file are mutually exclusive")
	case data != "":
		raw = []byte(data)
	case file == "-":
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	case file != "":
		raw, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
	default:
		return nil, nil
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return payload, nil
}

func runSend(cmd *cobra.Command, method, path string, payload any) error {
	format, err := parseOutputFormat()
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

	var opts []apiclient.RequestOption
	if rateKey != "" {
		opts = append(opts, apiclient.WithRateKey(rateKey))
	}

	body, err := dispatchVerb(cmd.Context(), client, method, path, payload, opts)
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

func dispatchVerb(ctx context.Context, client *apiclient.Client, method, path string, payload any, opts []apiclient.RequestOption) ([]byte, error) {
	switch method {
	case http.MethodPost:
		return client.Post(ctx, path, payload, opts...)
	case http.MethodPut:
		return client.Put(ctx, path, payload, opts...)
	case http.MethodPatch:
		return client.Patch(ctx, path, payload, opts...)
	case http.MethodDelete:
		return client.Delete(ctx, path, payload, opts...)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}
