package tmux

import (
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt configures a Tmux inspector
type Opt func(*opts) error

type opts struct {
	exec        Exec
	bin         string
	socket      string
	session     string
	submitDelay time.Duration
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	defaultBin = "tmux"

	// Time for the application to render a bracketed paste before Enter is
	// pressed
	DefaultSubmitDelay = 500 * time.Millisecond
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func applyOpts(o ...Opt) (*opts, error) {
	self := &opts{
		bin:         defaultBin,
		submitDelay: DefaultSubmitDelay,
	}
	for _, fn := range o {
		if err := fn(self); err != nil {
			return nil, err
		}
	}
	if self.exec == nil {
		self.exec = &command{bin: self.bin, socket: self.socket}
	}
	return self, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithSession restricts window lookups to one tmux session
func WithSession(name string) Opt {
	return func(o *opts) error {
		o.session = name
		return nil
	}
}

// WithSocket uses a named tmux server socket (tmux -L)
func WithSocket(name string) Opt {
	return func(o *opts) error {
		o.socket = name
		return nil
	}
}

// WithBinary sets the path of the tmux binary
func WithBinary(path string) Opt {
	return func(o *opts) error {
		if path == "" {
			return relay.ErrBadParameter.With("tmux binary path is empty")
		}
		o.bin = path
		return nil
	}
}

// WithSubmitDelay sets the delay between pasting text and pressing Enter
func WithSubmitDelay(d time.Duration) Opt {
	return func(o *opts) error {
		if d < 0 {
			return relay.ErrBadParameter.Withf("submit delay %v", d)
		}
		o.submitDelay = d
		return nil
	}
}

// withExec replaces the command runner
func withExec(e Exec) Opt {
	return func(o *opts) error {
		o.exec = e
		return nil
	}
}
