package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/amterp/color"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/formatter"
	"github.com/mcncl/jsonview/internal/logging"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
	"github.com/mcncl/jsonview/internal/renderer"
	"github.com/mcncl/jsonview/internal/server"
	"github.com/mcncl/jsonview/internal/worker"
)

// cli defines the command-line interface
type cli struct {
	Config  string           `help:"Path to a configuration file. Defaults to the nearest .jsonview.yml." short:"c" type:"path"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	Render RenderCmd `cmd:"" default:"withargs" help:"Render JSON as collapsible HTML (default)."`
	Worker WorkerCmd `cmd:"" help:"Answer newline-delimited render requests on stdin."`
	Serve  ServeCmd  `cmd:"" help:"Answer render requests over HTTP."`
}

// RenderCmd renders a single document.
type RenderCmd struct {
	Input       string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output      string `help:"Path to output HTML file. If not specified, writes to stdout." short:"o" type:"path"`
	FnName      string `help:"Wrap the markup in a callback frame, as for a JSONP payload." name:"fn-name"`
	Pretty      bool   `help:"Indent the output markup." short:"p"`
	LineNumbers bool   `help:"Number the lines of indented output. Implies --pretty." name:"line-numbers"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// WorkerCmd runs the message worker on stdin and stdout.
type WorkerCmd struct{}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Host string `help:"Host to listen on. Overrides the configuration."`
	Port int    `help:"Port to listen on. Overrides the configuration."`
}

// Context holds the runtime context
type Context struct {
	Config *config.Config
	Log    *logrus.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	noticeColor = color.New(color.FgCyan)
	doneColor   = color.New(color.FgGreen)
)

// CLI holds the parsed command line
var CLI cli

func newParser(c *cli, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("jsonview"),
		kong.Description("Render JSON documents as collapsible, syntax-highlighted HTML"),
		kong.UsageOnError(),
		kong.Vars{"version": "jsonview version " + Version},
	}, options...)
	return kong.New(c, options...)
}

func main() {
	parser, err := newParser(&CLI)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	ctx, err := newContext(CLI.Config, CLI.Debug)
	if err == nil {
		err = kctx.Run(ctx)
	}
	if err != nil {
		// Use our custom error handling to provide user-friendly error messages
		_, _ = errorColor.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonview --help\n")
		os.Exit(1)
	}
}

// newContext loads the configuration and builds the logger
func newContext(configPath string, debug bool) (*Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Dev.Debug = true
	}

	return &Context{
		Config: cfg,
		Log:    logging.New(os.Stderr, cfg.Dev.Debug),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

// Run renders the input document
func (r *RenderCmd) Run(ctx *Context) error {
	// 1. Parse JSON input
	v, err := r.parseInput(ctx)
	if err != nil {
		return err
	}

	// 2. Render
	res := renderer.New(renderer.WithConfig(ctx.Config)).Render(v, r.FnName)
	ctx.Log.WithField("loads", len(res.Loads)).Debug("rendered document")
	for _, load := range res.Loads {
		_, _ = noticeColor.Fprintf(ctx.Stderr, "deferred load %s -> %s\n", load.Src, load.SrcID)
	}

	// 3. Pretty-print if requested
	html := res.HTML
	lineNumbers := r.LineNumbers || ctx.Config.Output.LineNumbers
	if r.Pretty || lineNumbers || ctx.Config.Output.Pretty {
		f := formatter.NewFormatter()
		f.LineNumbers = lineNumbers
		html = f.Format(html)
	}

	// 4. Output the result
	return r.writeOutput(ctx, html)
}

// parseInput reads JSON from file or stdin
func (r *RenderCmd) parseInput(ctx *Context) (models.Value, error) {
	if r.Input != "" {
		return parser.ParseFile(r.Input)
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.NewInputError("failed to access stdin", err)
		}
		if (info.Mode() & os.ModeCharDevice) != 0 {
			// Terminal is interactive (not piped)
			if r.Interactive {
				return readInteractiveInput(ctx)
			}
			return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	return parser.ParseBytes(data)
}

// writeOutput writes markup to file or stdout
func (r *RenderCmd) writeOutput(ctx *Context, html string) error {
	if r.Output != "" {
		if err := os.WriteFile(r.Output, []byte(html+"\n"), 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", r.Output), err)
		}
		_, _ = doneColor.Fprintf(ctx.Stderr, "HTML written to %s\n", r.Output)
		return nil
	}

	if _, err := fmt.Fprintln(ctx.Stdout, strings.TrimSpace(html)); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readInteractiveInput lets users paste JSON and signal completion with
// Ctrl+D (EOF)
func readInteractiveInput(ctx *Context) (models.Value, error) {
	_, _ = noticeColor.Fprintln(ctx.Stderr, "jsonview interactive mode")
	fmt.Fprintln(ctx.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(ctx.Stdin)
	var sb strings.Builder
	for {
		line, err := reader.ReadString('\n')
		sb.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInputError("error reading input", err)
		}
	}

	if sb.Len() == 0 {
		return nil, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}
	fmt.Fprintln(ctx.Stderr, "\nRendering...")
	return parser.ParseString(sb.String())
}

// Run serves render requests on stdin until EOF or a signal
func (w *WorkerCmd) Run(ctx *Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Log.Debug("worker reading requests from stdin")
	err := worker.New(ctx.Config, ctx.Log).Serve(sigCtx, ctx.Stdin, ctx.Stdout)
	if err != nil && sigCtx.Err() == nil {
		return err
	}
	return nil
}

// Run serves render requests over HTTP until a signal
func (s *ServeCmd) Run(ctx *Context) error {
	if s.Host != "" {
		ctx.Config.Server.Host = s.Host
	}
	if s.Port != 0 {
		ctx.Config.Server.Port = s.Port
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}
	if !ctx.Config.Dev.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = noticeColor.Fprintf(ctx.Stderr, "Listening on http://%s\n", ctx.Config.Addr())
	return server.New(ctx.Config, ctx.Log, worker.New(ctx.Config, ctx.Log)).Run(sigCtx)
}
