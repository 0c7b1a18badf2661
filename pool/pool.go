/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package pool

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	liberr "github.com/sabouaram/mongocore/internal/errors"
	"github.com/sabouaram/mongocore/sockio"
)

// Dialer opens a fresh socket to the current master. It is supplied by the
// connection layer, which is responsible for running the connector first
// when the connection is not yet established (spec.md §4.3 step 1).
type Dialer func() (*sockio.Conn, liberr.Error)

// Pool is the bounded set of live sockets described in spec.md §4.3.
type Pool struct {
	cfg  Config
	dial Dialer

	mu   sync.Mutex
	cond *sync.Cond

	sockets    map[*sockio.Conn]struct{}
	checkedOut map[*sockio.Conn]struct{}
	idle       []*sockio.Conn
	pending    int
	closed     bool
}

// New builds a Pool. dial is called, without the pool lock held, whenever
// a new socket must be opened.
func New(cfg Config, dial Dialer) *Pool {
	p := &Pool{
		cfg:        cfg.Normalize(),
		dial:       dial,
		sockets:    make(map[*sockio.Conn]struct{}),
		checkedOut: make(map[*sockio.Conn]struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Checkout implements spec.md §4.3's checkout(): reuse an idle socket,
// open a new one while under pool_size, or block on the condition variable
// until one frees up or the timeout elapses.
func (p *Pool) Checkout() (*sockio.Conn, liberr.Error) {
	start := time.Now()

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, liberr.New(liberr.ConnectionFailure, "pool is closed")
		}

		if n := len(p.idle); n > 0 {
			c := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.checkedOut[c] = struct{}{}
			p.mu.Unlock()
			return c, nil
		}

		if len(p.sockets)+p.pending < p.cfg.Size {
			p.pending++
			p.mu.Unlock()
			c, err := p.dial()
			p.mu.Lock()
			p.pending--
			if err != nil {
				p.mu.Unlock()
				p.cond.Signal()
				return nil, err
			}
			p.sockets[c] = struct{}{}
			p.checkedOut[c] = struct{}{}
			p.mu.Unlock()
			return c, nil
		}

		remaining := p.cfg.Timeout - time.Since(start)
		if remaining <= 0 {
			p.mu.Unlock()
			return nil, liberr.New(liberr.ConnectionTimeout, "checkout: timed out waiting for a free socket")
		}

		timer := time.AfterFunc(remaining, p.cond.Broadcast)
		p.cond.Wait()
		timer.Stop()
	}
}

// Checkin returns c to the idle set. A socket not currently tracked by the
// pool (e.g. discarded by a prior Teardown) is silently ignored, per
// spec.md §4.3 ("checkin of a dead socket is a no-op after teardown").
func (p *Pool) Checkin(c *sockio.Conn) {
	p.mu.Lock()
	delete(p.checkedOut, c)
	if _, ok := p.sockets[c]; !ok {
		p.mu.Unlock()
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
	p.cond.Signal()
}

// Teardown closes every pooled socket and empties both sets atomically
// w.r.t. the pool lock, per spec.md §3's socket invariant. It does not
// disable the pool: the next Checkout will dial fresh sockets. Any waiter
// blocked in Checkout is woken so it can retry against the empty pool.
func (p *Pool) Teardown() {
	p.mu.Lock()
	live := make([]*sockio.Conn, 0, len(p.sockets))
	for c := range p.sockets {
		live = append(live, c)
	}
	p.sockets = make(map[*sockio.Conn]struct{})
	p.checkedOut = make(map[*sockio.Conn]struct{})
	p.idle = nil
	p.mu.Unlock()

	var g errgroup.Group
	for _, c := range live {
		c := c
		g.Go(func() error {
			return c.Close()
		})
	}
	_ = g.Wait()

	p.cond.Broadcast()
}

// Shutdown tears the pool down permanently: every subsequent Checkout
// fails immediately instead of reconnecting.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Teardown()
}

// Stats reports the current cardinality of the sockets and checked_out
// sets, for the invariants in spec.md §8: |sockets| ≤ pool_size and
// checked_out ⊆ sockets.
func (p *Pool) Stats() (sockets int, checkedOut int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sockets), len(p.checkedOut)
}
