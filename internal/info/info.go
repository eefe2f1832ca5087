package info

import (
	"github.com/xymaxim/vdl/internal/formats"
)

// VideoInformation is the video metadata reported along with formats.
type VideoInformation struct {
	Title        string
	Thumbnail    string
	WebpageURL   string
	Uploader     string
	Duration     formats.Number
	Platform     string
	Extractor    string
	ExtractorKey string
}

// Source returns the name of the site the video comes from, if known.
func (i VideoInformation) Source() string {
	switch {
	case i.ExtractorKey != "":
		return i.ExtractorKey
	case i.Extractor != "":
		return i.Extractor
	default:
		return i.Platform
	}
}

// FormatsResponse is the body returned by the formats endpoint.
type FormatsResponse struct {
	OK           *bool            `json:"ok"`
	Title        string           `json:"title"`
	Thumbnail    string           `json:"thumbnail"`
	WebpageURL   string           `json:"webpage_url"`
	Uploader     string           `json:"uploader"`
	Duration     formats.Number   `json:"duration"`
	Platform     string           `json:"platform"`
	Extractor    string           `json:"extractor"`
	ExtractorKey string           `json:"extractor_key"`
	Formats      []formats.Format `json:"formats"`
	Error        string           `json:"error"`
}

// Failed reports whether the backend marked the response as failed, either
// with an explicit ok=false or with an error and no formats.
func (r *FormatsResponse) Failed() bool {
	if r.OK != nil && !*r.OK {
		return true
	}
	return r.Error != "" && len(r.Formats) == 0
}

// Information extracts the video metadata from r.
func (r *FormatsResponse) Information() VideoInformation {
	return VideoInformation{
		Title:        r.Title,
		Thumbnail:    r.Thumbnail,
		WebpageURL:   r.WebpageURL,
		Uploader:     r.Uploader,
		Duration:     r.Duration,
		Platform:     r.Platform,
		Extractor:    r.Extractor,
		ExtractorKey: r.ExtractorKey,
	}
}
