// Package session drives the fetch-then-download interaction of one user:
// it holds the last fetched format list and the URL it belongs to, and
// guards against responses that arrive after the session moved on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
)

// Backend is the extraction service a session talks to.
type Backend interface {
	FetchFormats(ctx context.Context, sourceURL string) (*info.FormatsResponse, error)
	Download(ctx context.Context, req backend.DownloadRequest) (*backend.DownloadResult, error)
}

// Options configures a session.
type Options struct {
	// VerificationRequired makes every download carry a fresh verification
	// token.
	VerificationRequired bool
}

// ReadyDownload describes the last successful download.
type ReadyDownload struct {
	Kind     backend.ResultKind
	Location string
	Filename string
	FormatID string
}

// Session is the state of one user's interaction. It is safe for
// concurrent use.
type Session struct {
	backend Backend
	options Options

	mu         sync.Mutex
	state      State
	generation uint64
	inFlight   bool
	lastURL    string
	video      *info.VideoInformation
	allFormats []formats.Entry
	filter     formats.Category
	token      string
	lastErr    error
	download   *ReadyDownload
}

// New creates an idle session.
func New(b Backend, opts Options) *Session {
	return &Session{
		backend: b,
		options: opts,
		filter:  formats.CategoryAll,
	}
}

// Submit fetches the formats of rawURL. An empty URL fails with
// errs.ErrValidation without contacting the backend.
func (s *Session) Submit(ctx context.Context, rawURL string) error {
	sourceURL := strings.TrimSpace(rawURL)
	if sourceURL == "" {
		return fmt.Errorf("submitting URL: %w", errs.ErrValidation)
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return errs.ErrBusy
	}
	s.generation++
	gen := s.generation
	s.inFlight = true
	s.state = StateFetching
	s.lastURL = ""
	s.video = nil
	s.allFormats = nil
	s.filter = formats.CategoryAll
	s.lastErr = nil
	s.download = nil
	s.mu.Unlock()

	slog.Debug("fetching formats", "url", sourceURL, "generation", gen)
	resp, err := s.backend.FetchFormats(ctx, sourceURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		slog.Debug("dropping stale formats response", "generation", gen)
		return fmt.Errorf("fetching formats: %w", errs.ErrStale)
	}
	s.inFlight = false

	if err != nil {
		if !errors.Is(err, errs.ErrFetch) {
			err = &errs.BackendError{Kind: errs.ErrFetch, Err: err}
		}
		s.fail(StateFetchError, err)
		return fmt.Errorf("fetching formats: %w", err)
	}

	entries := formats.Sort(formats.Clean(resp.Formats))
	if len(entries) == 0 {
		s.fail(StateFetchError, errs.ErrEmptyResult)
		return fmt.Errorf("fetching formats: %w", errs.ErrEmptyResult)
	}

	video := resp.Information()
	s.state = StateFormatsReady
	s.lastURL = sourceURL
	s.video = &video
	s.allFormats = entries
	slog.Info("formats ready", "url", sourceURL, "count", len(entries))

	return nil
}

// SetFilter changes the displayed category.
func (s *Session) SetFilter(c formats.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasFormats() {
		return fmt.Errorf("setting filter in state %s: no formats", s.state)
	}
	s.filter = c
	if s.state == StateFormatsReady {
		s.state = StateSelecting
	}
	return nil
}

// SetVerificationToken stores a token for the next download attempt.
func (s *Session) SetVerificationToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// SelectFormat requests a download of formatID for the URL the current
// format list was fetched for. The verification token, if any, is used up
// by the attempt whatever its outcome. For ResultFile results the caller
// must close the returned result.
func (s *Session) SelectFormat(ctx context.Context, formatID string) (*backend.DownloadResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, errs.ErrBusy
	}
	if !s.state.canSelect() {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("selecting format in state %s: %w", state, errs.ErrUnknownFormat)
	}
	if _, ok := formats.Find(s.allFormats, formatID); !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("selecting format %q: %w", formatID, errs.ErrUnknownFormat)
	}

	token := s.token
	s.token = ""
	if s.options.VerificationRequired && token == "" {
		s.fail(StateVerificationRequired, errs.ErrVerificationRequired)
		s.mu.Unlock()
		return nil, fmt.Errorf("selecting format %q: %w", formatID, errs.ErrVerificationRequired)
	}

	req := backend.DownloadRequest{
		URL:               s.lastURL,
		FormatID:          formatID,
		VerificationToken: token,
	}
	s.generation++
	gen := s.generation
	s.inFlight = true
	s.state = StateDownloading
	s.lastErr = nil
	s.download = nil
	s.mu.Unlock()

	slog.Debug("requesting download", "url", req.URL, "format", formatID, "generation", gen)
	result, err := s.backend.Download(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		result.Close()
		slog.Debug("dropping stale download response", "generation", gen)
		return nil, fmt.Errorf("downloading format %q: %w", formatID, errs.ErrStale)
	}
	s.inFlight = false

	if err != nil {
		switch {
		case errors.Is(err, errs.ErrVerificationRequired):
			s.fail(StateVerificationRequired, err)
		case errors.Is(err, errs.ErrDownload):
			s.fail(StateDownloadError, err)
		default:
			err = &errs.BackendError{Kind: errs.ErrDownload, Err: err}
			s.fail(StateDownloadError, err)
		}
		return nil, fmt.Errorf("downloading format %q: %w", formatID, err)
	}

	s.state = StateDownloadReady
	s.download = &ReadyDownload{
		Kind:     result.Kind,
		Location: result.Location,
		Filename: result.Filename,
		FormatID: formatID,
	}
	slog.Info("download ready", "format", formatID, "filename", result.Filename)

	return result, nil
}

// Clear discards all session state. Responses to requests sent before
// Clear are dropped when they arrive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = StateIdle
	s.inFlight = false
	s.lastURL = ""
	s.video = nil
	s.allFormats = nil
	s.filter = formats.CategoryAll
	s.token = ""
	s.lastErr = nil
	s.download = nil
}

func (s *Session) fail(state State, err error) {
	s.state = state
	s.lastErr = err
	slog.Warn("request failed", "state", state, "err", err)
}
