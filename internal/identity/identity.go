// Package identity tracks the signed-in user for the client process and
// notifies subscribers when it changes.
package identity

import (
	"context"
	"sync"
)

// Identity is the opaque id that scopes a user's favorites.
type Identity struct {
	ID string
}

// Listener is called after every identity change. present is false when the
// user signed out.
type Listener func(ctx context.Context, id Identity, present bool)

// Context holds the current identity.
type Context struct {
	mu        sync.RWMutex
	current   Identity
	present   bool
	listeners []Listener
}

// New returns a Context with no identity.
func New() *Context {
	return &Context{}
}

// Current returns the identity and whether one is set.
func (c *Context) Current() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.present
}

// Subscribe registers l for future changes.
func (c *Context) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Set signs in id. Setting the identity already present is a no-op. An empty
// id is treated as Clear.
func (c *Context) Set(ctx context.Context, id Identity) {
	if id.ID == "" {
		c.Clear(ctx)
		return
	}
	c.mu.Lock()
	if c.present && c.current == id {
		c.mu.Unlock()
		return
	}
	c.current, c.present = id, true
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(ctx, id, true)
	}
}

// Clear signs out. Clearing an absent identity is a no-op.
func (c *Context) Clear(ctx context.Context) {
	c.mu.Lock()
	if !c.present {
		c.mu.Unlock()
		return
	}
	c.current, c.present = Identity{}, false
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(ctx, Identity{}, false)
	}
}
