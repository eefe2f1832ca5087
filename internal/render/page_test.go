package render_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
	"github.com/xymaxim/vdl/internal/render"
)

func TestWritePage_EscapesBackendText(t *testing.T) {
	t.Parallel()
	entries := formats.Sort([]formats.Format{
		{
			FormatID:   `"><script>alert(1)</script>`,
			Ext:        "mp4",
			VideoCodec: "avc1",
			AudioCodec: "mp4a",
			Height:     720,
			FormatNote: "<img src=x onerror=alert(2)>",
		},
	})
	page := &render.Page{
		SessionID: "sid",
		Video: &info.VideoInformation{
			Title:     "<b>Clip</b>",
			Thumbnail: "javascript:alert(3)",
		},
		Filter: formats.CategoryAll,
		Tabs:   render.Tabs(formats.CategoryAll),
		Rows: render.Rows(entries, formats.CategoryAll, render.Options{
			Link: func(id string) string { return "/select?format_id=" + id },
		}),
	}

	var buf bytes.Buffer
	require.NoError(t, render.WritePage(&buf, page))

	out := buf.String()
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.NotContains(t, out, "<img src=x")
	assert.NotContains(t, out, "<b>Clip</b>")
	assert.NotContains(t, out, "javascript:alert(3)")
	assert.Contains(t, out, "&lt;b&gt;Clip&lt;/b&gt;")
}

func TestWritePage_PlaceholderAndFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WritePage(&buf, &render.Page{
		Video: &info.VideoInformation{Title: "Clip"},
		Tabs:  render.Tabs(formats.CategoryAudioOnly),
		Rows:  []render.Row{{Placeholder: true}},
	}))
	assert.Contains(t, buf.String(), render.PlaceholderText)

	buf.Reset()
	require.NoError(t, render.WritePage(&buf, &render.Page{Failure: "Rate limit exceeded."}))
	assert.Contains(t, buf.String(), "Rate limit exceeded.")
}

func TestWritePage_Verification(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, render.WritePage(&buf, &render.Page{
		Video: &info.VideoInformation{Title: "Clip"},
		Rows:  []render.Row{{FormatID: "18", Badge: "Video+Audio • MP4"}},
		Verification: render.Verification{
			Enabled:   true,
			Required:  true,
			SiteKey:   "site-key",
			ScriptURL: "https://challenges.example.test/api.js",
			FieldName: "cf-turnstile-response",
		},
	}))
	out := buf.String()
	assert.Contains(t, out, `data-sitekey="site-key"`)
	assert.Contains(t, out, "Complete the verification below")
	assert.Contains(t, out, `name="format_id" value="18"`)
}

func TestPage_ShowResults(t *testing.T) {
	t.Parallel()
	assert.False(t, (&render.Page{}).ShowResults())
	assert.True(t, (&render.Page{Failure: "x"}).ShowResults())
}
