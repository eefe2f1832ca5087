package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/session"
)

type Formats struct {
	CommonFlags
	URL    string `arg:"" help:"Video URL"`
	Filter string `help:"Show only one category (all, video+audio, video-only, audio-only)" short:"f" default:"all"`
	Links  bool   `help:"Print a download link for each format (GET backends only)" short:"l"`

	out io.Writer
}

func (c *Formats) Run(ctx context.Context) error {
	if err := c.setupLogging(); err != nil {
		return err
	}
	filter, err := formats.ParseCategory(c.Filter)
	if err != nil {
		return fmt.Errorf("parsing filter: %w", err)
	}
	client, err := c.newClient()
	if err != nil {
		return err
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	sess := session.New(client, session.Options{})
	fmt.Fprintf(os.Stderr, "(<<) Fetching formats of %s...\n", c.URL)
	if err := sess.Submit(ctx, c.URL); err != nil {
		return userError{err}
	}
	snap := sess.Snapshot()
	if line := formatVideoLine(snap.Video); line != "" {
		fmt.Fprintln(os.Stderr, line)
	}

	opts := render.Options{SizeUnit: c.sizeUnit()}
	if c.Links {
		opts.Link = func(formatID string) string {
			return client.DownloadLink(snap.LastURL, formatID)
		}
	}
	rows := render.Rows(snap.Formats, filter, opts)
	if err := render.WriteTable(out, rows); err != nil {
		return fmt.Errorf("writing formats: %w", err)
	}
	if c.Links {
		return writeLinks(out, rows)
	}
	return nil
}

func writeLinks(w io.Writer, rows []render.Row) error {
	if len(rows) == 1 && rows[0].Placeholder {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nID\tLINK")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.FormatID, r.DownloadURL)
	}
	return tw.Flush()
}
