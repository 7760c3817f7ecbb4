package main

import (
	"fmt"
	"os"
	"path/filepath"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	registry "github.com/mutablelogic/go-relay/pkg/registry"
	yaml "gopkg.in/yaml.v3"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type BindingsCmd struct {
	List   ListBindingsCmd `cmd:"" default:"withargs" help:"List bindings"`
	Bind   BindCmd         `cmd:"" help:"Bind a conversation to a tmux window"`
	Unbind UnbindCmd       `cmd:"" help:"Remove the binding of a conversation"`
}

type ListBindingsCmd struct{}

type BindCmd struct {
	User   int64  `arg:"" help:"Telegram user identifier"`
	Window string `arg:"" help:"tmux window identifier, for example @3"`
	Thread int64  `name:"thread" help:"Forum topic (thread) identifier" optional:""`
	Chat   int64  `name:"chat" help:"Chat identifier, defaults to the private chat with the user" optional:""`
	Name   string `name:"name" help:"Display name" optional:""`
}

type UnbindCmd struct {
	User   int64 `arg:"" help:"Telegram user identifier"`
	Thread int64 `name:"thread" help:"Forum topic (thread) identifier" optional:""`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *ListBindingsCmd) Run(ctx *Globals) error {
	bindings, err := registry.Load(ctx.BindingsFile)
	if err != nil {
		return err
	}
	entries := bindings.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no bindings in", ctx.BindingsFile)
		return nil
	}
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(map[string]any{"bindings": entries})
}

func (cmd *BindCmd) Run(ctx *Globals) error {
	if err := os.MkdirAll(filepath.Dir(ctx.BindingsFile), 0o700); err != nil {
		return err
	}
	bindings, err := registry.Load(ctx.BindingsFile)
	if err != nil {
		return err
	}
	entry := registry.Entry{
		User:   cmd.User,
		Thread: cmd.Thread,
		Chat:   cmd.Chat,
		Window: cmd.Window,
		Name:   cmd.Name,
	}
	if err := bindings.Bind(entry); err != nil {
		return err
	}
	ctx.logger.Info("bound", "conversation", relay.Key(cmd.User, cmd.Thread).String(), "window", cmd.Window)
	return nil
}

func (cmd *UnbindCmd) Run(ctx *Globals) error {
	bindings, err := registry.Load(ctx.BindingsFile)
	if err != nil {
		return err
	}
	key := relay.Key(cmd.User, cmd.Thread)
	if err := bindings.Unbind(key); err != nil {
		return err
	}
	ctx.logger.Info("unbound", "conversation", key.String())
	return nil
}
