package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newExportCmd(e *env) *cobra.Command {
	var server, format, output string
	var completed bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the schedules as ICS, CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "ics", "csv", "json":
			default:
				return fmt.Errorf("unsupported format %q (want ics, csv or json)", format)
			}
			if output == "" {
				output = "my_schedule." + format
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			data, err := fetchExport(ctx, server, format, completed)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}
			e.log.Info().Str("format", format).Str("output", output).Int("bytes", len(data)).Msg("export written")
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer(), "Schedule server URL (or MY_SCHEDULE_SERVER env)")
	cmd.Flags().StringVarP(&format, "format", "f", "ics", "Export format (ics, csv, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default my_schedule.<format>, - for stdout)")
	cmd.Flags().BoolVar(&completed, "completed", false, "Include completed schedules")
	return cmd
}

func fetchExport(ctx context.Context, server, format string, completed bool) ([]byte, error) {
	q := url.Values{}
	q.Set("format", format)
	if completed {
		q.Set("completed", "true")
	}
	u := strings.TrimRight(server, "/") + "/api/export?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d when fetching %s", resp.StatusCode, u)
	}
	return io.ReadAll(resp.Body)
}
