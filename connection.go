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

// Package mongocore wires the connector, pool, and request router into the
// single construction surface spec.md §6 describes: open, open_paired,
// open_from_uri, plus the saved-auth mutators and close.
package mongocore

import (
	"time"

	"github.com/sabouaram/mongocore/bsonutil"
	"github.com/sabouaram/mongocore/connector"
	"github.com/sabouaram/mongocore/dbconfig"
	liberr "github.com/sabouaram/mongocore/internal/errors"
	liblog "github.com/sabouaram/mongocore/internal/logger"
	"github.com/sabouaram/mongocore/pool"
	"github.com/sabouaram/mongocore/reqid"
	"github.com/sabouaram/mongocore/reqrouter"
	"github.com/sabouaram/mongocore/sockio"
)

// Options tunes a Connection, mirroring spec.md §6's conceptual
// construction surface: options ⊆ {pool_size, timeout, slave_ok, logger,
// connect}.
type Options struct {
	PoolSize int
	Timeout  time.Duration
	SlaveOK  bool
	Logger   liblog.Logger

	// Connect runs the initial connector.Connect() synchronously inside
	// Open/OpenPaired/OpenFromURI. Defaults to true; set false to defer
	// the first connect to the first Send/Receive call.
	Connect *bool
}

func (o Options) connectEagerly() bool {
	return o.Connect == nil || *o.Connect
}

// Connection is the top-level handle applications hold: the elected
// master, the socket pool, and the request router, all re-entered through
// the connector on any teardown.
type Connection struct {
	opts  Options
	codec bsonutil.Codec
	auths *dbconfig.AuthList
	ids   *reqid.Generator

	connector *connector.Connector
	pool      *pool.Pool
	Router    *reqrouter.Router
}

// AuthFunc replays one saved authentication; see connector.AuthFunc.
type AuthFunc = connector.AuthFunc

func newConnection(nodes dbconfig.NodeSet, codec bsonutil.Codec, auth AuthFunc, opts Options) (*Connection, liberr.Error) {
	if err := nodes.Validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		opts:  opts,
		codec: codec,
		auths: dbconfig.NewAuthList(),
		ids:   &reqid.Generator{},
	}

	conn, err := connector.New(nodes, connector.Options{SlaveOK: opts.SlaveOK, DialTimeout: opts.dialTimeout()}, c.auths, codec, opts.Logger, c.ids, auth)
	if err != nil {
		return nil, err
	}
	c.connector = conn

	c.pool = pool.New(pool.Config{Size: opts.PoolSize, Timeout: opts.Timeout}, c.dial)

	c.Router = &reqrouter.Router{
		Pool:     c.pool,
		Codec:    codec,
		Log:      opts.Logger,
		IDs:      c.ids,
		Teardown: c.teardown,
	}

	if opts.connectEagerly() {
		if err := c.connector.Connect(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Open implements spec.md §6's open(host?, port?, options).
func Open(host string, port uint16, codec bsonutil.Codec, auth AuthFunc, opts Options) (*Connection, liberr.Error) {
	return newConnection(dbconfig.NewSingle(host, port), codec, auth, opts)
}

// OpenPaired implements spec.md §6's open_paired(nodes, options). A paired
// node set silently forces slave_ok false (spec.md §4.4), applied inside
// connector.New.
func OpenPaired(a, b dbconfig.PairSpec, codec bsonutil.Codec, auth AuthFunc, opts Options) (*Connection, liberr.Error) {
	nodes, err := dbconfig.NewPaired([]dbconfig.PairSpec{a, b})
	if err != nil {
		return nil, err
	}
	return newConnection(nodes, codec, auth, opts)
}

// OpenFromURI implements spec.md §6's open_from_uri(uri, options). Every
// saved auth the URI carries is registered before the initial connect, so
// it is replayed against the freshly elected master.
func OpenFromURI(uri string, codec bsonutil.Codec, auth AuthFunc, opts Options) (*Connection, liberr.Error) {
	nodes, auths, err := dbconfig.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		opts:  opts,
		codec: codec,
		auths: dbconfig.NewAuthList(),
		ids:   &reqid.Generator{},
	}
	for _, a := range auths {
		c.auths.Add(a)
	}

	conn, err := connector.New(nodes, connector.Options{SlaveOK: opts.SlaveOK, DialTimeout: opts.dialTimeout()}, c.auths, codec, opts.Logger, c.ids, auth)
	if err != nil {
		return nil, err
	}
	c.connector = conn
	c.pool = pool.New(pool.Config{Size: opts.PoolSize, Timeout: opts.Timeout}, c.dial)
	c.Router = &reqrouter.Router{
		Pool:     c.pool,
		Codec:    codec,
		Log:      opts.Logger,
		IDs:      c.ids,
		Teardown: c.teardown,
	}

	if opts.connectEagerly() {
		if err := c.connector.Connect(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (o Options) dialTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return pool.DefaultTimeout
}

// dial is the pool.Dialer: ensure a master is elected, then open a fresh
// socket to it, per spec.md §4.3 step 1.
func (c *Connection) dial() (*sockio.Conn, liberr.Error) {
	master, ok := c.connector.Master()
	if !ok {
		if err := c.connector.Connect(); err != nil {
			return nil, err
		}
		master, _ = c.connector.Master()
	}
	return sockio.Dial(master.Network().String(), master.Address(), c.opts.dialTimeout())
}

// teardown implements spec.md §5/§7's failure discipline: every socket is
// closed, the elected master is forgotten, and the next operation
// re-enters the connector.
func (c *Connection) teardown() {
	c.pool.Teardown()
	c.connector.Clear()
}

// AddAuth registers or replaces a saved authentication, per spec.md §3.
func (c *Connection) AddAuth(auth dbconfig.SavedAuth) {
	c.auths.Add(auth)
}

// RemoveAuth forgets the saved authentication for dbName.
func (c *Connection) RemoveAuth(dbName string) {
	c.auths.Remove(dbName)
}

// ClearAuths forgets every saved authentication.
func (c *Connection) ClearAuths() {
	c.auths.Clear()
}

// Master returns the currently elected endpoint, if any.
func (c *Connection) Master() (dbconfig.Endpoint, bool) {
	return c.connector.Master()
}

// Close implements spec.md §8's post-close invariants: every socket is
// closed and discarded, and the elected master is forgotten (host == null,
// port == null in spec terms).
func (c *Connection) Close() {
	c.pool.Shutdown()
	c.connector.Clear()
}
