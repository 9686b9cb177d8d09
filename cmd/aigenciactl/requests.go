package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aigencia/apiclient/client"
)

func (a *cli) newVerbCmd(name, method string, withBody bool) *cobra.Command {
	var data string
	var headers []string
	var timeout time.Duration
	var noCredentials bool

	cmd := &cobra.Command{
		Use:   name + " PATH",
		Short: fmt.Sprintf("Send a %s request and print the JSON response", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &client.RequestConfig{Timeout: timeout}
			if len(headers) > 0 {
				cfg.Headers = make(map[string]string, len(headers))
				for _, h := range headers {
					k, v, ok := strings.Cut(h, ":")
					if !ok {
						return fmt.Errorf("invalid header %q, want Name:value", h)
					}
					cfg.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
				}
			}
			if noCredentials {
				cfg.Credentials = client.Bool(false)
			}

			var body any
			if withBody && data != "" {
				raw, err := readData(data, cmd.InOrStdin())
				if err != nil {
					return err
				}
				if !json.Valid(raw) {
					return fmt.Errorf("--data is not valid JSON")
				}
				body = json.RawMessage(raw)
			}

			c, err := a.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			start := time.Now()
			out, err := client.Do[json.RawMessage](cmd.Context(), c, method, args[0], body, cfg)
			log.Debug().Str("method", method).Str("path", args[0]).Dur("elapsed", time.Since(start)).Msg("request finished")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	if withBody {
		cmd.Flags().StringVar(&data, "data", "", "JSON request body, @file to read a file, - for stdin")
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header as Name:value (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout override")
	cmd.Flags().BoolVar(&noCredentials, "no-credentials", false, "Do not send session cookies")
	return cmd
}

func readData(data string, stdin io.Reader) ([]byte, error) {
	switch {
	case data == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		return []byte(data), nil
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Minute)
}
