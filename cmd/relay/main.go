package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	// Packages
	kong "github.com/alecthomas/kong"
	otel "go.opentelemetry.io/otel"
	metric "go.opentelemetry.io/otel/metric"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	// Debugging
	Debug bool `name:"debug" help:"Enable debug output"`
	JSON  bool `name:"log-json" help:"Write logs as JSON"`

	// Bindings
	BindingsFile string `name:"bindings-file" env:"RELAY_BINDINGS" help:"Conversation to window bindings file" default:"${bindings}"`

	// Context
	ctx      context.Context
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	execName string
}

type CLI struct {
	Globals

	// Commands
	Run      RunCmd      `cmd:"" help:"Relay terminal sessions to Telegram" group:"SERVER"`
	Bindings BindingsCmd `cmd:"" help:"Manage conversation to window bindings" group:"BINDINGS"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const instrumentationName = "github.com/mutablelogic/go-relay"

////////////////////////////////////////////////////////////////////////////////
// MAIN

func main() {
	name := execName()

	// Create a cli parser
	cli := CLI{}
	cmd := kong.Parse(&cli,
		kong.Name(name),
		kong.Description("Relay a terminal coding assistant session to Telegram"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"bindings": defaultBindings(name),
		},
	)

	// Create a context
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	cli.Globals.ctx = ctx
	cli.Globals.execName = name
	cli.Globals.logger = newLogger(cli.Debug, cli.JSON)
	cli.Globals.tracer = otel.Tracer(instrumentationName)
	cli.Globals.meter = otel.Meter(instrumentationName)

	// Run the command
	if err := cmd.Run(&cli.Globals); err != nil {
		cmd.FatalIfErrorf(err)
		return
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func execName() string {
	// The name of the executable
	name, err := os.Executable()
	if err != nil {
		panic(err)
	} else {
		return filepath.Base(name)
	}
}

// defaultBindings returns the bindings file in the user configuration
// directory, or in the working directory when there is none
func defaultBindings(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "bindings.yaml"
	}
	return filepath.Join(dir, name, "bindings.yaml")
}

func newLogger(debug, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
