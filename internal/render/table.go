package render

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTable writes rows as aligned plain text columns.
func WriteTable(w io.Writer, rows []Row) error {
	if len(rows) == 1 && rows[0].Placeholder {
		_, err := fmt.Fprintln(w, PlaceholderText)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tQUALITY\tNOTE\tCODECS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			sanitize(r.FormatID),
			sanitize(r.Badge),
			sanitize(r.Quality),
			sanitize(r.Note),
			sanitize(r.Codecs),
		)
	}
	return tw.Flush()
}
