// Package render appends the schedule list of a schedule server to an HTML document.
//
// It is the server-side counterpart of the page script: one fetch of the schedule
// collection, then one <li> per entry appended to the list container, in response order.
// Nothing is retried or deduplicated; rendering twice appends twice.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerID is the id of the list element entries are appended to.
const ContainerID = "schedule-list"

// ErrContainerNotFound is returned when the document has no element with the container id.
var ErrContainerNotFound = errors.New("container element not found")

// FormatLine returns the display text of an entry: "<date> <start>〜<end>：<title>".
func FormatLine(e Entry) string {
	return fmt.Sprintf("%s %s〜%s：%s", e.Date, e.Start, e.End, e.Title)
}

// Renderer fetches the schedule collection and renders it into documents.
type Renderer struct {
	client      *Client
	containerID string
	log         zerolog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithContainerID overrides the id of the list element.
func WithContainerID(id string) Option {
	return func(r *Renderer) {
		r.containerID = id
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Renderer) {
		r.log = log
	}
}

// New creates a Renderer reading from client.
func New(client *Client, opts ...Option) *Renderer {
	r := &Renderer{
		client:      client,
		containerID: ContainerID,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render fetches the entries, locates the container and appends one list item per entry.
// It returns the number of items appended. Any failure aborts before the first append.
func (r *Renderer) Render(ctx context.Context, doc *goquery.Document) (int, error) {
	entries, err := r.client.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	n, err := Append(doc, r.containerID, entries)
	if err != nil {
		return 0, err
	}
	r.log.Debug().Int("entries", n).Str("container", r.containerID).Msg("schedule list rendered")
	return n, nil
}

// Append adds one <li> per entry to the element with the given id and returns the number added.
func Append(doc *goquery.Document, containerID string, entries []Entry) (int, error) {
	container := doc.Find("#" + containerID).First()
	if container.Length() == 0 {
		return 0, fmt.Errorf("%w: #%s", ErrContainerNotFound, containerID)
	}

	for _, e := range entries {
		li := &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
		li.AppendChild(&html.Node{Type: html.TextNode, Data: FormatLine(e)})
		container.AppendNodes(li)
	}
	return len(entries), nil
}

// ParseDocument parses an HTML page for rendering.
func ParseDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// OuterHTML serializes the whole document.
func OuterHTML(doc *goquery.Document) (string, error) {
	return goquery.OuterHtml(doc.Selection)
}
