// Command odatasniff detects and reads OData payloads stored in files.
package main

import (
	"context"
	"fmt"
	"github.com/alecthomas/kong"
	mangokong "github.com/alecthomas/mango-kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
	"os"
	"os/signal"
)

type CLI struct {
	Detect  DetectCommand     `cmd:"" help:"List the payload kinds a message may hold."`
	Read    ReadCommand       `cmd:"" help:"Read a payload and print it as JSON."`
	Man     mangokong.ManFlag `help:"Write man page." hidden:""`
	Verbose bool              `short:"v" help:"Log negotiation details to stderr."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "odatasniff:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(
		&cli,
		kong.Name("odatasniff"),
		kong.Description(`inspect OData payloads

The content type and direction of the message are given as flags, the body is read
from a file. Settings may be loaded from a yaml file.`),
		kong.Writers(stdout, stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(stdout, (*io.Writer)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, cli.Verbose)
	defer logger.Sync() //nolint:errcheck
	kongCtx.Bind(logger)

	return kongCtx.Run()
}

// Development style logs on stderr. Only warnings are written unless verbose is set.
func newLogger(stderr io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(stderr),
		level,
	)
	return zap.New(core).Named("odatasniff")
}
