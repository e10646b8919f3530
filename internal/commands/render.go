package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/my-schedule/internal/render"
)

func newRenderCmd(e *env) *cobra.Command {
	var server, page, output, container string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the schedule list into an HTML page",
		Long: `Fetch the schedule list from a running server and append one list item per
schedule to the #schedule-list element of a page. Without --page the server's own
index page is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var pageReader io.ReadCloser
			var err error
			if page == "" {
				pageReader, err = fetchPage(ctx, server)
			} else {
				pageReader, err = os.Open(page)
			}
			if err != nil {
				return fmt.Errorf("failed to open page: %w", err)
			}
			doc, err := render.ParseDocument(pageReader)
			pageReader.Close()
			if err != nil {
				return err
			}

			r := render.New(render.NewClient(server, nil),
				render.WithContainerID(container),
				render.WithLogger(e.log))
			n, err := r.Render(ctx, doc)
			if err != nil {
				return err
			}

			out, err := render.OuterHTML(doc)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, []byte(out)); err != nil {
				return err
			}
			e.log.Info().Int("entries", n).Str("output", output).Msg("page rendered")
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer(), "Schedule server URL (or MY_SCHEDULE_SERVER env)")
	cmd.Flags().StringVarP(&page, "page", "p", "", "HTML page to render into (default: the server's index page)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&container, "container", render.ContainerID, "Id of the list element")
	return cmd
}

// fetchPage downloads the server's index page
func fetchPage(ctx context.Context, server string) (io.ReadCloser, error) {
	url := strings.TrimRight(server, "/") + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d when fetching %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// writeOutput writes data to path, or to stdout when path is "-"
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
