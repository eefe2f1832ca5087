package formats

import (
	"fmt"
	"strings"
)

// Category is a display category of formats.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryCombined  Category = "video+audio"
	CategoryVideoOnly Category = "video-only"
	CategoryAudioOnly Category = "audio-only"
	CategoryOther     Category = "other"
)

// Filters lists the categories a user can filter by, in display order.
var Filters = []Category{
	CategoryAll,
	CategoryCombined,
	CategoryVideoOnly,
	CategoryAudioOnly,
}

// Label returns a short human label for c.
func (c Category) Label() string {
	switch c {
	case CategoryAll:
		return "All"
	case CategoryCombined:
		return "Video+Audio"
	case CategoryVideoOnly:
		return "Video only"
	case CategoryAudioOnly:
		return "Audio"
	default:
		return "Other"
	}
}

// ParseCategory parses a filter name. Empty input means all formats.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CategoryAll, nil
	case "video+audio", "video audio", "combined", "progressive", "muxed":
		return CategoryCombined, nil
	case "video-only", "video", "videoonly":
		return CategoryVideoOnly, nil
	case "audio-only", "audio", "audioonly":
		return CategoryAudioOnly, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Classify returns the category of f by the presence of its codecs.
func Classify(f Format) Category {
	hasVideo, hasAudio := f.HasVideo(), f.HasAudio()
	switch {
	case hasVideo && hasAudio:
		return CategoryCombined
	case hasVideo:
		return CategoryVideoOnly
	case hasAudio:
		return CategoryAudioOnly
	default:
		return CategoryOther
	}
}

// Matches reports whether a format of category c is shown under filter.
func (c Category) Matches(filter Category) bool {
	return filter == CategoryAll || filter == "" || c == filter
}
