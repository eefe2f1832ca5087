package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	apppkg "github.com/xymaxim/vdl/internal/app"
	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
)

// CommonFlags configure access to the backend.
type CommonFlags struct {
	Backend        string        `help:"Base URL of the extraction backend" env:"VDL_BACKEND_URL" required:""`
	FormatsPath    string        `help:"Path of the formats endpoint" env:"VDL_FORMATS_PATH" default:"/api/formats"`
	DownloadPath   string        `help:"Path of the download endpoint" env:"VDL_DOWNLOAD_PATH" default:"/download"`
	DownloadMethod string        `help:"HTTP method of the download endpoint" env:"VDL_DOWNLOAD_METHOD" enum:"GET,POST" default:"GET"`
	SizeUnit       string        `help:"Unit of file sizes reported by the backend" env:"VDL_SIZE_UNIT" enum:"bytes,mb" default:"bytes"`
	Timeout        time.Duration `help:"Timeout of a backend request" env:"VDL_TIMEOUT" default:"2m"`
	Retries        int           `help:"Retries of failed backend requests" env:"VDL_RETRIES" default:"0"`
	LogLevel       string        `help:"Log level (debug, info, warn, error)" env:"VDL_LOG_LEVEL" default:"warn"`
}

func (f *CommonFlags) setupLogging() error {
	level, err := apppkg.ParseLogLevel(f.LogLevel)
	if err != nil {
		return err
	}
	apppkg.SetupLogging(level)
	return nil
}

func (f *CommonFlags) newClient() (*backend.Client, error) {
	client, err := backend.NewClient(backend.Config{
		BaseURL:        f.Backend,
		FormatsPath:    f.FormatsPath,
		DownloadPath:   f.DownloadPath,
		DownloadMethod: f.DownloadMethod,
		Timeout:        f.Timeout,
		RetryMax:       f.Retries,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring backend: %w", err)
	}
	return client, nil
}

func (f *CommonFlags) sizeUnit() formats.SizeUnit {
	if f.SizeUnit == "mb" {
		return formats.SizeMegabytes
	}
	return formats.SizeBytes
}

func formatVideoLine(v *info.VideoInformation) string {
	if v == nil {
		return ""
	}
	parts := []string{}
	if v.Title != "" {
		parts = append(parts, fmt.Sprintf("'%s'", v.Title))
	}
	if v.Uploader != "" {
		parts = append(parts, "by "+v.Uploader)
	}
	if v.Duration.Present() {
		parts = append(parts, formatDuration(time.Duration(v.Duration.Value()*float64(time.Second))))
	}
	if src := v.Source(); src != "" {
		parts = append(parts, "from "+src)
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	s := d.Truncate(time.Second).String()
	s = strings.ReplaceAll(s, "m0s", "m")
	s = strings.ReplaceAll(s, "h0m", "h")
	return s
}

func formatSaved(path string, n int64) string {
	return fmt.Sprintf("Saved %s to %s", humanize.IBytes(uint64(n)), path)
}

// userError shows the status text of err instead of its full chain.
type userError struct {
	err error
}

func (e userError) Error() string { return errs.UserMessage(e.err) }

func (e userError) Unwrap() error { return e.err }
