package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/xymaxim/vdl/internal/formats"
)

// PlaceholderText is shown instead of rows when a category has no formats.
const PlaceholderText = "No formats in this category."

const separator = " • "

// LinkFunc builds a download link for a format ID.
type LinkFunc func(formatID string) string

// Options configures row rendering.
type Options struct {
	SizeUnit formats.SizeUnit
	Link     LinkFunc
}

// Row is one displayed format.
type Row struct {
	FormatID    string
	Category    formats.Category
	Badge       string
	Quality     string
	Note        string
	Codecs      string
	DownloadURL string
	Placeholder bool
}

// Title returns the row heading.
func (r Row) Title() string {
	switch {
	case r.Placeholder:
		return PlaceholderText
	case r.Quality != "":
		return r.Quality
	case r.Note != "":
		return r.Note
	default:
		return "Format"
	}
}

// Rows builds rows for the entries shown under filter. An empty result
// yields a single placeholder row.
func Rows(entries []formats.Entry, filter formats.Category, opts Options) []Row {
	filtered := formats.Filter(entries, filter)
	if len(filtered) == 0 {
		return []Row{{Placeholder: true}}
	}

	rows := make([]Row, 0, len(filtered))
	for _, e := range filtered {
		rows = append(rows, buildRow(e, opts))
	}
	return rows
}

func buildRow(e formats.Entry, opts Options) Row {
	f := e.Format
	row := Row{
		FormatID: f.FormatID,
		Category: e.Category,
		Badge:    Badge(e),
		Quality:  QualityLabel(e, opts.SizeUnit),
		Note:     f.Notes(),
		Codecs:   CodecSummary(f),
	}
	if opts.Link != nil {
		row.DownloadURL = opts.Link(f.FormatID)
	}
	return row
}

// Badge returns the category and container text, e.g. "Video only • MP4".
func Badge(e formats.Entry) string {
	ext := strings.ToUpper(strings.TrimSpace(e.Format.Ext))
	if ext == "" {
		ext = "FILE"
	}
	return e.Category.Label() + separator + ext
}

// QualityLabel joins resolution, frame rate, bitrate and size, skipping
// absent parts.
func QualityLabel(e formats.Entry, unit formats.SizeUnit) string {
	f := e.Format
	var parts []string

	switch {
	case f.Height.Present():
		parts = append(parts, fmt.Sprintf("%dp", int(f.Height.Value())))
	case f.Resolution != "" && e.Category != formats.CategoryAudioOnly:
		parts = append(parts, f.Resolution)
	}
	if f.FrameRate.Present() {
		parts = append(parts, fmt.Sprintf("%sfps", trimFloat(f.FrameRate.Value())))
	}
	if e.Bitrate > 0 {
		parts = append(parts, fmt.Sprintf("%dkbps", int(math.Round(e.Bitrate))))
	}
	if size := f.SizeBytes(unit); size > 0 {
		parts = append(parts, humanize.IBytes(size))
	}

	return strings.Join(parts, separator)
}

// CodecSummary returns present codecs, e.g. "V: avc1 • A: mp4a".
func CodecSummary(f formats.Format) string {
	var parts []string
	if f.HasVideo() {
		parts = append(parts, "V: "+f.VideoCodec)
	}
	if f.HasAudio() {
		parts = append(parts, "A: "+f.AudioCodec)
	}
	return strings.Join(parts, separator)
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.2f", v)
}
