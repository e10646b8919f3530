package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SchedulesPath is the collection the list is rendered from.
const SchedulesPath = "/api/schedules"

// Errors returned for bodies that are valid JSON but not a list of entries.
var (
	ErrNotAnArray   = errors.New("response is not an array")
	ErrNullEntry    = errors.New("null entry in response")
	ErrTrailingData = errors.New("trailing data after response array")
)

// Entry is one schedule line as delivered by the schedules endpoint.
type Entry struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Title string `json:"title"`
}

// Client fetches schedule entries from a schedule server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL (e.g. "http://localhost:8080").
// A nil httpClient means http.DefaultClient; no timeout is added beyond the caller's context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Fetch issues a single GET for the schedule collection and decodes the body as a JSON array of entries.
// The status code is not inspected; a body that is not an array of string-typed entries is an error.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	url := c.baseURL + SchedulesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	entries, err := decodeEntries(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s (status %d): %w", url, resp.StatusCode, err)
	}
	return entries, nil
}

// decodeEntries reads exactly one JSON array of entry objects from r.
// A null body, a null element or trailing data is an error.
func decodeEntries(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	var raw []*Entry
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotAnArray
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, ErrTrailingData
	}

	entries := make([]Entry, 0, len(raw))
	for i, e := range raw {
		if e == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNullEntry, i)
		}
		entries = append(entries, *e)
	}
	return entries, nil
}
