package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/xymaxim/vdl/internal/commands"
)

type CLI struct {
	Formats  commands.Formats  `cmd:"" help:"List the formats of a video"`
	Download commands.Download `cmd:"" help:"Download one format of a video"`
	Serve    commands.Serve    `cmd:"" help:"Start the web front end"`
	Version  commands.Version  `cmd:"" help:"Show version information"`
}

func main() {
	// Variables already set in the environment take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("error: loading .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(
		&cli,
		kong.Name("vdl"),
		kong.Description("A front end for a video extraction and download backend"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run()
	stop()
	kctx.FatalIfErrorf(err)
}
