// Package singleflight coalesces concurrent calls that share a key so only
// one execution hits the backend. The result is handed to every waiter.
package singleflight

import (
	"sync"
)

// Group manages in-flight calls keyed by string.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// New returns an empty Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn, making sure only one execution for key is in flight at a
// time. Duplicate callers block until the owner finishes and receive the same
// result. shared reports whether the caller got someone else's result.
func (g *Group) Do(key string, fn func() (interface{}, error)) (val interface{}, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()

	return c.val, c.err, false
}

// Forget drops the in-flight entry for key, letting the next caller execute
// fn again even if an earlier call has not returned yet.
func (g *Group) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}
