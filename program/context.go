package program

import (
	"encoding/hex"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Context memoizes compiled programs for one query call. It is safe for use by
// the goroutines serving the call's filters: concurrent requests for the same
// program share a single compilation.
type Context struct {
	compiler Compiler
	shared   *Cache

	mu       sync.RWMutex
	programs map[[32]byte]*Program
	group    singleflight.Group

	compiled atomic.Int64
	reused   atomic.Int64
}

// NewContext creates a per-query context. shared may be nil.
func NewContext(compiler Compiler, shared *Cache) *Context {
	return &Context{
		compiler: compiler,
		shared:   shared,
		programs: make(map[[32]byte]*Program),
	}
}

// Program returns the compiled program for source and its encoded arguments.
func (c *Context) Program(source string, encodedArgs []byte) (*Program, error) {
	key := Key(source, encodedArgs)

	c.mu.RLock()
	p, ok := c.programs[key]
	c.mu.RUnlock()
	if ok {
		c.reused.Add(1)
		return p, nil
	}

	if p, ok := c.shared.Get(key); ok {
		c.reused.Add(1)
		c.store(key, p)
		return p, nil
	}

	// set only by the caller whose closure compiled
	fresh := false
	v, err, _ := c.group.Do(hex.EncodeToString(key[:]), func() (interface{}, error) {
		// a call that finished just before this one joined may have stored it
		c.mu.RLock()
		cached, ok := c.programs[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		args, err := DecodeArguments(encodedArgs)
		if err != nil {
			return nil, err
		}
		p, err := c.compiler.Compile(source, args)
		if err != nil {
			return nil, err
		}
		fresh = true
		c.compiled.Add(1)
		c.shared.Add(key, p)
		c.store(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if !fresh {
		c.reused.Add(1)
	}
	return v.(*Program), nil
}

// Compiled is the number of compilations this context performed.
func (c *Context) Compiled() int64 {
	return c.compiled.Load()
}

// Reused is the number of requests served without compiling, from this
// context, the shared cache or a compilation in flight.
func (c *Context) Reused() int64 {
	return c.reused.Load()
}

func (c *Context) store(key [32]byte, p *Program) {
	c.mu.Lock()
	c.programs[key] = p
	c.mu.Unlock()
}
