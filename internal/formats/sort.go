package formats

import (
	"slices"
)

// Entry is a format annotated with its category and sort keys. The wrapped
// Format is a copy of the backend record and is never modified.
type Entry struct {
	Format   Format
	Category Category
	Height   float64
	Bitrate  float64
}

// Annotate classifies fs and computes their sort keys, preserving order.
func Annotate(fs []Format) []Entry {
	entries := make([]Entry, 0, len(fs))
	for _, f := range fs {
		c := Classify(f)
		entries = append(entries, Entry{
			Format:   f,
			Category: c,
			Height:   f.Height.Value(),
			Bitrate:  bitrateProxy(f, c),
		})
	}
	return entries
}

// Sort returns fs annotated and ordered by descending height, then by
// descending bitrate. Equal formats keep their input order.
func Sort(fs []Format) []Entry {
	entries := Annotate(fs)
	slices.SortStableFunc(entries, compareEntries)
	return entries
}

func compareEntries(a, b Entry) int {
	switch {
	case a.Height > b.Height:
		return -1
	case a.Height < b.Height:
		return 1
	case a.Bitrate > b.Bitrate:
		return -1
	case a.Bitrate < b.Bitrate:
		return 1
	default:
		return 0
	}
}

func bitrateProxy(f Format, c Category) float64 {
	if f.TotalBitrate.Present() {
		return f.TotalBitrate.Value()
	}
	switch c {
	case CategoryCombined:
		return f.VideoBitrate.Value() + f.AudioBitrate.Value()
	case CategoryVideoOnly:
		return f.VideoBitrate.Value()
	case CategoryAudioOnly:
		return f.AudioBitrate.Value()
	default:
		return f.VideoBitrate.Value() + f.AudioBitrate.Value()
	}
}

// Clean drops records that cannot be offered for download: ones without
// an ID, and ones carrying neither size, bitrate nor height.
func Clean(fs []Format) []Format {
	out := make([]Format, 0, len(fs))
	for _, f := range fs {
		if f.FormatID == "" {
			continue
		}
		if !f.Filesize.Present() &&
			!f.FilesizeApprox.Present() &&
			!f.TotalBitrate.Present() &&
			!f.VideoBitrate.Present() &&
			!f.AudioBitrate.Present() &&
			!f.Height.Present() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Filter returns the entries shown under the filter category, keeping
// their order.
func Filter(entries []Entry, filter Category) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Category.Matches(filter) {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with the given format ID.
func Find(entries []Entry, formatID string) (Entry, bool) {
	for _, e := range entries {
		if e.Format.FormatID == formatID {
			return e, true
		}
	}
	return Entry{}, false
}
