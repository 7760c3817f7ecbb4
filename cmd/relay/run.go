package main

import (
	"context"
	"errors"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	poller "github.com/mutablelogic/go-relay/pkg/poller"
	queue "github.com/mutablelogic/go-relay/pkg/queue"
	registry "github.com/mutablelogic/go-relay/pkg/registry"
	render "github.com/mutablelogic/go-relay/pkg/render"
	telegram "github.com/mutablelogic/go-relay/pkg/telegram"
	tmux "github.com/mutablelogic/go-relay/pkg/tmux"
	version "github.com/mutablelogic/go-relay/pkg/version"
	errgroup "golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type RunCmd struct {
	Token          string        `name:"token" env:"TELEGRAM_TOKEN" help:"Telegram Bot API token" required:""`
	Session        string        `name:"tmux-session" help:"Only relay windows of this tmux session" optional:""`
	Socket         string        `name:"tmux-socket" help:"tmux server socket name (tmux -L)" optional:""`
	PollInterval   time.Duration `name:"poll-interval" help:"Time between terminal status polls" default:"1s"`
	MergeBudget    int           `name:"merge-budget" help:"Maximum length of merged content" default:"3800"`
	FloodThreshold time.Duration `name:"flood-threshold" help:"Rate limit waits above this suspend status updates" default:"10s"`
	ShutdownGrace  time.Duration `name:"shutdown-grace" help:"Time allowed for queued messages on shutdown" default:"5s"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunCmd) Run(ctx *Globals) (err error) {
	parent, endSpan := otel.StartSpan(ctx.tracer, ctx.ctx, "RunCommand")
	defer func() { endSpan(err) }()

	bindings, err := registry.Load(ctx.BindingsFile)
	if err != nil {
		return err
	}

	// Terminal
	terminal, err := tmux.New(tmux.WithSession(cmd.Session), tmux.WithSocket(cmd.Socket))
	if err != nil {
		return err
	}

	// Chat surface
	bot, err := telegram.New(cmd.Token, ctx.logger.With("component", "telegram"))
	if err != nil {
		return err
	}

	// Delivery queue
	manager, err := queue.New(bot.Client(), render.New(), terminal,
		queue.WithLogger(ctx.logger.With("component", "queue")),
		queue.WithTracer(ctx.tracer),
		queue.WithMeter(ctx.meter),
		queue.WithResolver(bindings.Resolve),
		queue.WithMergeBudget(cmd.MergeBudget),
		queue.WithFloodThreshold(cmd.FloodThreshold),
	)
	if err != nil {
		return err
	}

	// Producers
	handler, err := telegram.NewHandler(bindings, terminal, manager, ctx.logger.With("component", "handler"))
	if err != nil {
		return err
	}
	status, err := poller.New(bindings, terminal, manager,
		poller.WithLogger(ctx.logger.With("component", "poller")),
		poller.WithInterval(cmd.PollInterval),
	)
	if err != nil {
		return err
	}

	ctx.logger.InfoContext(parent, "relay started",
		"version", version.Version(),
		"bot", bot.Name(),
		"bindings", ctx.BindingsFile,
		"conversations", len(bindings.Bindings()),
	)

	group, gctx := errgroup.WithContext(parent)
	group.Go(func() error {
		return bot.Run(gctx, handler)
	})
	group.Go(func() error {
		return status.Run(gctx)
	})
	err = group.Wait()

	// Stop the delivery workers
	shutdown, cancel := context.WithTimeout(context.WithoutCancel(parent), cmd.ShutdownGrace)
	defer cancel()
	if serr := manager.Shutdown(shutdown); serr != nil && !errors.Is(serr, context.DeadlineExceeded) {
		err = errors.Join(err, serr)
	}
	ctx.logger.InfoContext(parent, "relay stopped")
	return err
}
