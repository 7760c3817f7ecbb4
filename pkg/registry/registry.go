// Package registry implements [relay.Registry] as a set of bindings held in
// memory and optionally persisted to a YAML file.
package registry

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	yaml "gopkg.in/yaml.v3"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Registry binds conversations to terminal windows
type Registry struct {
	sync.RWMutex
	path     string
	bindings map[relay.ConversationKey]Entry
}

// Entry is a binding as stored in the bindings file. Chat defaults to the
// user identifier, which addresses the private chat with the user.
type Entry struct {
	User   int64  `yaml:"user"`
	Thread int64  `yaml:"thread,omitempty"`
	Chat   int64  `yaml:"chat,omitempty"`
	Window string `yaml:"window"`
	Name   string `yaml:"name,omitempty"`
}

type file struct {
	Bindings []Entry `yaml:"bindings"`
}

var _ relay.Registry = (*Registry)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns an empty registry which is not persisted
func New() *Registry {
	return &Registry{bindings: make(map[relay.ConversationKey]Entry)}
}

// Load reads bindings from a YAML file. A missing file yields an empty
// registry; changes are written back to the same path.
func Load(path string) (*Registry, error) {
	r := New()
	r.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	} else if err != nil {
		return nil, err
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, relay.ErrBadParameter.Withf("%s: %v", path, err)
	}
	for _, entry := range f.Bindings {
		if entry.User == 0 || entry.Window == "" {
			return nil, relay.ErrBadParameter.Withf("%s: binding requires user and window", path)
		}
		key := relay.Key(entry.User, entry.Thread)
		if _, exists := r.bindings[key]; exists {
			return nil, relay.ErrBadParameter.Withf("%s: duplicate binding for %v", path, key)
		}
		r.bindings[key] = entry
	}
	return r, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Bindings returns all bindings ordered by user then thread
func (r *Registry) Bindings() []relay.Binding {
	r.RLock()
	defer r.RUnlock()

	result := make([]relay.Binding, 0, len(r.bindings))
	for key, entry := range r.bindings {
		result = append(result, relay.Binding{Key: key, WindowID: entry.Window})
	}
	slices.SortFunc(result, func(a, b relay.Binding) int {
		if c := cmp.Compare(a.Key.UserID, b.Key.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.ThreadID, b.Key.ThreadID)
	})
	return result
}

// Entries returns the stored form of all bindings, ordered like Bindings
func (r *Registry) Entries() []Entry {
	bindings := r.Bindings()

	r.RLock()
	defer r.RUnlock()
	result := make([]Entry, 0, len(bindings))
	for _, binding := range bindings {
		if entry, exists := r.bindings[binding.Key]; exists {
			result = append(result, entry)
		}
	}
	return result
}

// Window returns the window bound to a conversation
func (r *Registry) Window(key relay.ConversationKey) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	entry, exists := r.bindings[key]
	return entry.Window, exists
}

// Resolve returns the chat target for a conversation
func (r *Registry) Resolve(key relay.ConversationKey) relay.Target {
	r.RLock()
	defer r.RUnlock()
	target := relay.Target{ChatID: key.UserID, ThreadID: key.ThreadID}
	if entry, exists := r.bindings[key]; exists && entry.Chat != 0 {
		target.ChatID = entry.Chat
	}
	return target
}

// Bind binds a conversation to a window, replacing any existing binding
func (r *Registry) Bind(entry Entry) error {
	if entry.User == 0 || entry.Window == "" {
		return relay.ErrBadParameter.With("binding requires user and window")
	}

	r.Lock()
	defer r.Unlock()
	key := relay.Key(entry.User, entry.Thread)
	entry.Thread = key.ThreadID
	previous, existed := r.bindings[key]
	r.bindings[key] = entry
	if err := r.save(); err != nil {
		if existed {
			r.bindings[key] = previous
		} else {
			delete(r.bindings, key)
		}
		return err
	}
	return nil
}

// Unbind removes the binding for a conversation
func (r *Registry) Unbind(key relay.ConversationKey) error {
	r.Lock()
	defer r.Unlock()
	entry, exists := r.bindings[key]
	if !exists {
		return relay.ErrNotFound.Withf("binding for %v", key)
	}
	delete(r.bindings, key)
	if err := r.save(); err != nil {
		r.bindings[key] = entry
		return err
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// save writes the bindings file through a temporary file and a rename. It
// must be called with the lock held.
func (r *Registry) save() error {
	if r.path == "" {
		return nil
	}

	var f file
	for _, entry := range r.bindings {
		f.Bindings = append(f.Bindings, entry)
	}
	slices.SortFunc(f.Bindings, func(a, b Entry) int {
		if c := cmp.Compare(a.User, b.User); c != 0 {
			return c
		}
		return cmp.Compare(a.Thread, b.Thread)
	})
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".bindings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), r.path)
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e Entry) String() string {
	data, err := yaml.Marshal(e)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
