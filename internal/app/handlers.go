package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/session"
	"github.com/xymaxim/vdl/internal/urlutil"
)

// HandlerFunc is an HTTP handler that reports unexpected failures.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WithError adapts h to http.HandlerFunc, logging its error and answering
// with a 500.
func WithError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			slog.Error("handling request", "method", r.Method, "path", r.URL.Path, "err", err)
			writeError(w, "Internal error", http.StatusInternalServerError)
		}
	}
}

func writeError(w http.ResponseWriter, msg string, code int) {
	http.Error(w, fmt.Sprintf("%d %s", code, msg), code)
}

// tab returns the tab named by the sid form value, storing a new one when
// the value is unknown.
func (a *App) tab(r *http.Request) (*tab, bool) {
	return a.sessions.Get(a.Backend, r.FormValue("sid"))
}

func (a *App) redirectHome(w http.ResponseWriter, r *http.Request, t *tab) {
	http.Redirect(w, r, urlutil.WithQuery("/", "sid", t.id), http.StatusSeeOther)
}

func (a *App) IndexHandler(w http.ResponseWriter, r *http.Request) error {
	t, found := a.sessions.Lookup(r.FormValue("sid"))
	if !found {
		t = a.sessions.blank(a.Backend)
	}

	if raw := r.URL.Query().Get("filter"); raw != "" {
		c, err := formats.ParseCategory(raw)
		if err != nil {
			t.flash(render.Notice{Text: "Unknown category.", Error: true})
		} else if err := t.session.SetFilter(c); err != nil {
			slog.Debug("ignoring filter", "filter", c, "err", err)
		}
	}

	page := a.buildPage(t)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePage(w, page); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

func (a *App) FormatsHandler(w http.ResponseWriter, r *http.Request) error {
	t, _ := a.tab(r)
	input := r.FormValue("url")
	t.setInput(input)

	err := t.session.Submit(r.Context(), input)
	switch {
	case err == nil:
		n := len(t.session.Snapshot().Formats)
		t.flash(render.Notice{Text: fmt.Sprintf("Found %d formats.", n)})
	case errors.Is(err, errs.ErrStale):
		slog.Debug("formats response superseded", "sid", t.id)
	default:
		t.flash(render.Notice{Text: errs.UserMessage(err), Error: true})
	}

	a.redirectHome(w, r, t)
	return nil
}

func (a *App) SelectHandler(w http.ResponseWriter, r *http.Request) error {
	var t *tab
	if r.Method == http.MethodGet {
		var found bool
		if t, found = a.sessions.Lookup(r.FormValue("sid")); !found {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return nil
		}
	} else {
		t, _ = a.tab(r)
	}

	if field := a.Config.Verification.FieldName; field != "" {
		if token := r.FormValue(field); token != "" {
			t.session.SetVerificationToken(token)
		}
	}

	result, err := t.session.SelectFormat(r.Context(), r.FormValue("format_id"))
	if err != nil {
		if !errors.Is(err, errs.ErrStale) {
			t.flash(render.Notice{Text: errs.UserMessage(err), Error: true})
		}
		a.redirectHome(w, r, t)
		return nil
	}
	defer result.Close()

	if result.Kind == backend.ResultLink {
		if !urlutil.IsWebURL(result.Location) {
			t.flash(render.Notice{Text: errs.MessageDownloadFailed, Error: true})
			a.redirectHome(w, r, t)
			return nil
		}
		http.Redirect(w, r, result.Location, http.StatusSeeOther)
		return nil
	}

	return serveFile(w, result)
}

func serveFile(w http.ResponseWriter, result *backend.DownloadResult) error {
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(
		"attachment", map[string]string{"filename": result.Filename},
	))
	if result.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	}

	if _, err := io.Copy(w, result.Body); err != nil {
		// Headers are already sent.
		slog.Warn("streaming download", "filename", result.Filename, "err", err)
	}
	return nil
}

func (a *App) ClearHandler(w http.ResponseWriter, r *http.Request) error {
	t, _ := a.tab(r)
	t.session.Clear()
	t.setInput("")
	t.flash(render.Notice{Text: "Cleared."})
	a.redirectHome(w, r, t)
	return nil
}

func (a *App) buildPage(t *tab) *render.Page {
	snap := t.session.Snapshot()
	notice, input := t.popNotice()
	if snap.LastURL != "" {
		input = snap.LastURL
	}

	page := &render.Page{
		SessionID:    t.id,
		InputURL:     input,
		State:        snap.State.String(),
		Busy:         snap.Busy,
		Notice:       notice,
		Video:        snap.Video,
		Filter:       snap.Filter,
		Tabs:         render.Tabs(snap.Filter),
		Verification: a.Config.Verification,
	}
	page.Verification.Required = snap.State == session.StateVerificationRequired

	if snap.State == session.StateFetchError {
		page.Failure = errs.UserMessage(snap.Err)
	}
	if snap.State.HasFormats() {
		page.Rows = render.Rows(snap.Formats, snap.Filter, render.Options{
			SizeUnit: a.Config.SizeUnit,
			Link: func(formatID string) string {
				return urlutil.WithQuery("/select", "sid", t.id, "format_id", formatID)
			},
		})
	}
	if d := snap.Download; d != nil && d.Kind == backend.ResultLink {
		page.Download = &render.ReadyDownload{URL: d.Location, Filename: d.Filename}
	}
	return page
}
