// Package session holds the session currently driven by the command stream.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/arenalab/arena-recorder/internal/sim"
)

// ErrNoSession is returned when a command needs a session and none is active.
var ErrNoSession = errors.New("no active session")

// Context holds the active session. Handlers run on the command goroutine while
// log records and status probes may read it from elsewhere.
type Context struct {
	mu      sync.RWMutex
	session *sim.Session
	started int

	// copied from the session on the command goroutine so readers never
	// touch live simulation state
	id   string
	tick uint64
	wave int
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{}
}

// Get returns the active session or ErrNoSession.
func (c *Context) Get() (*sim.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session, nil
}

// Set makes s the active session and returns the one it replaced, if any.
func (c *Context) Set(s *sim.Session) *sim.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.session
	c.session = s
	c.id, c.tick, c.wave = "", 0, 0
	if s != nil {
		c.started++
		c.id, c.tick, c.wave = s.ID(), s.CurrentTick(), s.Wave()
	}
	return prev
}

// Sync copies the active session's tick and wave for Attrs. Call it on the
// goroutine that ticks the session.
func (c *Context) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.tick, c.wave = c.session.CurrentTick(), c.session.Wave()
	}
}

// Clear drops the active session and returns it.
func (c *Context) Clear() *sim.Session {
	return c.Set(nil)
}

// Started returns how many sessions have been made active.
func (c *Context) Started() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Snapshot returns the copied id, tick and wave of the active session.
func (c *Context) Snapshot() (id string, tick uint64, wave int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return "", 0, 0, false
	}
	return c.id, c.tick, c.wave, true
}

// Attrs reports the active session's id, tick and wave for log records.
// It satisfies logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("session_id", c.id),
		slog.Uint64("tick", c.tick),
		slog.Int("wave", c.wave),
	}
}
