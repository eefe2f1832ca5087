package session

import (
	"slices"

	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
)

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	State    State
	Busy     bool
	LastURL  string
	Video    *info.VideoInformation
	Formats  []formats.Entry
	Filter   formats.Category
	HasToken bool
	Err      error
	Download *ReadyDownload
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:    s.state,
		Busy:     s.inFlight,
		LastURL:  s.lastURL,
		Formats:  slices.Clone(s.allFormats),
		Filter:   s.filter,
		HasToken: s.token != "",
		Err:      s.lastErr,
	}
	if s.video != nil {
		video := *s.video
		snap.Video = &video
	}
	if s.download != nil {
		download := *s.download
		snap.Download = &download
	}
	return snap
}

// Visible returns the formats shown under the active filter.
func (snap Snapshot) Visible() []formats.Entry {
	return formats.Filter(snap.Formats, snap.Filter)
}
