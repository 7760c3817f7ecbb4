package queue

import (
	"sync"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type probeKey struct {
	Key    relay.ConversationKey
	Window string
}

// probeSet holds the (conversation, window) pairs with a probe waiting in a
// queue. A second probe for the same pair is not enqueued.
type probeSet struct {
	mu      sync.Mutex
	pending map[probeKey]struct{}
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newProbeSet() *probeSet {
	return &probeSet{
		pending: make(map[probeKey]struct{}),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// acquire returns false if a probe is already pending for the pair
func (p *probeSet) acquire(key relay.ConversationKey, window string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := probeKey{key, window}
	if _, exists := p.pending[k]; exists {
		return false
	}
	p.pending[k] = struct{}{}
	return true
}

func (p *probeSet) release(key relay.ConversationKey, window string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, probeKey{key, window})
}

// pendingFor returns true if a probe is waiting for the pair
func (p *probeSet) pendingFor(key relay.ConversationKey, window string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.pending[probeKey{key, window}]
	return exists
}

// clearConversation releases every pair for the conversation
func (p *probeSet) clearConversation(key relay.ConversationKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.pending {
		if k.Key == key {
			delete(p.pending, k)
		}
	}
}

func (p *probeSet) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.pending)
}
