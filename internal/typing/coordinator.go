// Package typing tracks short-lived typing state per (thread, email).
// Entries self-expire after a quiet interval so a disconnect or a lost
// "stopped" event can never leave a participant typing forever.
package typing

import (
	"sync"
	"time"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// DefaultQuiet is the interval after which typing state auto-clears when
// no refresh or explicit stop arrives.
const DefaultQuiet = 3 * time.Second

type entry struct {
	thread types.ThreadKey
	email  string
	timer  *time.Timer
}

// Coordinator owns the typing entries and their expiry timers. Timers are
// cancelled on every normal transition so reconnects never leak them.
// onExpire is invoked off the lock when a quiet period elapses.
type Coordinator struct {
	mu       sync.Mutex
	quiet    time.Duration
	entries  map[string]*entry
	onExpire func(thread types.ThreadKey, email string)
}

// NewCoordinator creates a coordinator with the given quiet interval.
func NewCoordinator(quiet time.Duration, onExpire func(types.ThreadKey, string)) *Coordinator {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Coordinator{
		quiet:    quiet,
		entries:  make(map[string]*entry),
		onExpire: onExpire,
	}
}

func key(thread types.ThreadKey, email string) string {
	return thread.String() + "\x00" + email
}

// Start transitions (thread, email) to typing and arms the expiry timer.
// A refresh of an already-typing entry re-arms the timer; only the
// Idle -> Typing transition reports changed.
func (c *Coordinator) Start(thread types.ThreadKey, email string) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(thread, email)
	if e, ok := c.entries[k]; ok {
		e.timer.Reset(c.quiet)
		return false
	}

	e := &entry{thread: thread, email: email}
	e.timer = time.AfterFunc(c.quiet, func() { c.expire(k) })
	c.entries[k] = e
	return true
}

// Stop clears (thread, email) explicitly, short-circuiting the timer.
// Stopping an idle entry is a no-op.
func (c *Coordinator) Stop(thread types.ThreadKey, email string) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(key(thread, email))
}

// StopAll clears every entry for email and returns the threads that were
// live, so the caller can broadcast the transitions. Used at disconnect.
func (c *Coordinator) StopAll(email string) []types.ThreadKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	var threads []types.ThreadKey
	for k, e := range c.entries {
		if e.email == email {
			e.timer.Stop()
			delete(c.entries, k)
			threads = append(threads, e.thread)
		}
	}
	return threads
}

// Active reports whether (thread, email) is currently typing.
func (c *Coordinator) Active(thread types.ThreadKey, email string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key(thread, email)]
	return ok
}

func (c *Coordinator) remove(k string) bool {
	e, ok := c.entries[k]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(c.entries, k)
	return true
}

// expire runs on the timer goroutine; an entry already cleared by an
// explicit stop or disconnect is not re-announced.
func (c *Coordinator) expire(k string) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if ok {
		delete(c.entries, k)
	}
	c.mu.Unlock()

	if ok && c.onExpire != nil {
		c.onExpire(e.thread, e.email)
	}
}
