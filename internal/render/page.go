package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").ParseFS(templatesFS, "templates/page.html"),
)

// Notice is a transient status message shown once.
type Notice struct {
	Text  string
	Error bool
}

// FilterTab is one category tab.
type FilterTab struct {
	Category formats.Category
	Label    string
	Active   bool
}

// Verification describes the human-verification widget.
type Verification struct {
	Enabled   bool
	Required  bool
	SiteKey   string
	ScriptURL string
	FieldName string
}

// ReadyDownload points to a file prepared by the backend.
type ReadyDownload struct {
	URL      string
	Filename string
}

// Page is everything the front end page shows.
type Page struct {
	SessionID    string
	InputURL     string
	State        string
	Busy         bool
	Notice       *Notice
	Video        *info.VideoInformation
	Failure      string
	Filter       formats.Category
	Tabs         []FilterTab
	Rows         []Row
	Verification Verification
	Download     *ReadyDownload
}

// ShowResults reports whether the results section is visible.
func (p *Page) ShowResults() bool {
	return p.Video != nil || p.Failure != ""
}

// Tabs returns the filter tabs with active marked.
func Tabs(active formats.Category) []FilterTab {
	tabs := make([]FilterTab, 0, len(formats.Filters))
	for _, c := range formats.Filters {
		tabs = append(tabs, FilterTab{
			Category: c,
			Label:    c.Label(),
			Active:   c == active,
		})
	}
	return tabs
}

// WritePage renders p as HTML. All text is escaped by html/template.
func WritePage(w io.Writer, p *Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("executing page template: %w", err)
	}
	return nil
}
