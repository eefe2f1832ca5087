package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
	"github.com/xymaxim/vdl/internal/pathutil"
	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/session"
	"github.com/xymaxim/vdl/internal/verify"
)

type Download struct {
	CommonFlags
	URL          string `arg:"" help:"Video URL"`
	FormatID     string `arg:"" name:"format" help:"Format ID as listed by the formats command, or best/worst with an optional category (best:audio-only)"`
	Token        string `help:"Verification token for this download" env:"VDL_VERIFICATION_TOKEN"`
	TokenCommand string `help:"Command printing a verification token, run when the backend asks for verification" env:"VDL_TOKEN_COMMAND"`
	Output       string `help:"Output directory" short:"o" type:"existingdir" default:"."`
	Filename     string `help:"Output file name (default: suggested by the backend)"`
	Quiet        bool   `help:"Do not show progress" short:"q"`
}

func (c *Download) Run(ctx context.Context) error {
	if err := c.setupLogging(); err != nil {
		return err
	}
	client, err := c.newClient()
	if err != nil {
		return err
	}

	var initial, helper verify.TokenSource
	if c.Token != "" {
		initial = verify.NewStaticToken(c.Token)
	}
	if c.TokenCommand != "" {
		if helper, err = verify.NewCommandSource(c.TokenCommand); err != nil {
			return err
		}
	}

	sess := session.New(client, session.Options{})
	c.printf("(<<) Fetching formats of %s...\n", c.URL)
	if err := sess.Submit(ctx, c.URL); err != nil {
		return userError{err}
	}
	snap := sess.Snapshot()
	video := snap.Video
	if line := formatVideoLine(video); line != "" {
		c.printf("%s\n", line)
	}

	selector := formats.ParseSelector(c.FormatID)
	entry, ok := selector.Resolve(snap.Formats)
	if !ok {
		return userError{fmt.Errorf("selecting format %q: %w", selector, errs.ErrUnknownFormat)}
	}
	formatID := entry.Format.FormatID

	c.printf("(<<) Requesting format %s (%s)...\n", formatID, render.Badge(entry))
	result, err := selectWithVerification(ctx, sess, formatID, initial, helper)
	if err != nil {
		return userError{err}
	}
	defer result.Close()

	if result.Kind == backend.ResultLink {
		c.printf("(<<) Retrieving %s...\n", result.Location)
		file, err := client.Open(ctx, result.Location)
		if err != nil {
			return userError{err}
		}
		defer file.Close()
		if file.Filename == backend.FallbackFilename && result.Filename != "" {
			file.Filename = result.Filename
		}
		result = file
	}

	name := c.Filename
	if name == "" {
		name = outputName(result, video, formatID)
	}
	path := filepath.Join(c.Output, pathutil.SafeFilename(name, backend.FallbackFilename))

	n, err := c.save(path, result)
	if err != nil {
		return err
	}
	fmt.Println(formatSaved(path, n))

	return nil
}

// selectWithVerification selects formatID with a token from initial, if it
// has one. When the backend asks for verification, it asks helper for a
// token and tries once more.
func selectWithVerification(
	ctx context.Context,
	sess *session.Session,
	formatID string,
	initial, helper verify.TokenSource,
) (*backend.DownloadResult, error) {
	attempt := verify.Attempt{URL: sess.Snapshot().LastURL, FormatID: formatID}
	if initial != nil {
		token, err := initial.Token(ctx, attempt)
		switch {
		case err == nil:
			sess.SetVerificationToken(token)
		case !errors.Is(err, verify.ErrNoToken):
			return nil, fmt.Errorf("getting verification token: %w", err)
		}
	}

	result, err := sess.SelectFormat(ctx, formatID)
	if err == nil || helper == nil || !errors.Is(err, errs.ErrVerificationRequired) {
		return result, err
	}

	token, tokenErr := helper.Token(ctx, attempt)
	if tokenErr != nil {
		return nil, fmt.Errorf("getting verification token: %w", errors.Join(tokenErr, err))
	}
	sess.SetVerificationToken(token)

	return sess.SelectFormat(ctx, formatID)
}

// outputName picks a file name: the one suggested by the backend, or one
// built from the video title.
func outputName(result *backend.DownloadResult, video *info.VideoInformation, formatID string) string {
	suggested := result.Filename
	if suggested != "" && suggested != backend.FallbackFilename {
		return suggested
	}
	if video == nil || video.Title == "" {
		return suggested
	}

	var ext string
	if exts, err := mime.ExtensionsByType(result.ContentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf(
		"%s_%s%s",
		pathutil.AdjustForFilename(video.Title, 0),
		pathutil.AdjustForFilename(formatID, 20),
		ext,
	)
}

func (c *Download) save(path string, result *backend.DownloadResult) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vdl-*.part")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size := result.ContentLength
	if size <= 0 {
		size = -1
	}
	var bar *progressbar.ProgressBar
	if c.Quiet {
		bar = progressbar.DefaultBytesSilent(size, "downloading")
	} else {
		bar = progressbar.DefaultBytes(size, "downloading")
	}

	n, err := io.Copy(io.MultiWriter(tmp, bar), result.Body)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	bar.Finish()
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("moving file into place: %w", err)
	}
	return n, nil
}

func (c *Download) printf(format string, a ...any) {
	if c.Quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, a...)
}
