package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Exec runs a tmux command with optional standard input and returns its
// standard output
type Exec interface {
	Output(ctx context.Context, stdin string, args ...string) ([]byte, error)
}

// command runs the tmux binary, optionally on a named server socket
type command struct {
	bin    string
	socket string
}

var _ Exec = (*command)(nil)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (c *command) Output(ctx context.Context, stdin string, args ...string) ([]byte, error) {
	if len(args) == 0 {
		return nil, relay.ErrBadParameter.With("missing tmux command")
	}
	name := args[0]
	if c.socket != "" {
		args = append([]string{"-L", c.socket}, args...)
	}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tmux %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
