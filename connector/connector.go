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

// Package connector implements server discovery and master election among
// a node set's candidate endpoints, per spec.md §4.4: probe each endpoint
// directly with an ismaster admin command, bypassing the pool, and select
// the first accepted master (or slave, under explicit consent).
package connector

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/sabouaram/mongocore/bsonutil"
	"github.com/sabouaram/mongocore/dbconfig"
	liberr "github.com/sabouaram/mongocore/internal/errors"
	liblog "github.com/sabouaram/mongocore/internal/logger"
	"github.com/sabouaram/mongocore/reqid"
	"github.com/sabouaram/mongocore/sockio"
	"github.com/sabouaram/mongocore/wire"
)

// AuthFunc replays one saved authentication against the elected master. It
// is a collaborator: the database façade that implements the actual
// authentication handshake is out of scope for this core (spec.md §1).
type AuthFunc func(ep dbconfig.Endpoint, auth dbconfig.SavedAuth) liberr.Error

// Options tunes the connector.
type Options struct {
	// SlaveOK allows accepting a non-master endpoint as the connection
	// target. Only meaningful for a single-node NodeSet: a paired
	// connection silently forces this false (spec.md §4.4).
	SlaveOK bool

	// DialTimeout bounds each probe socket's connect attempt.
	DialTimeout time.Duration
}

// Connector elects a master among Nodes and keeps track of the current
// selection.
type Connector struct {
	nodes dbconfig.NodeSet
	opts  Options
	auths *dbconfig.AuthList
	codec bsonutil.Codec
	log   liblog.Logger
	ids   *reqid.Generator
	auth  AuthFunc

	master *dbconfig.Endpoint
}

// New builds a Connector. auth may be nil only if no SavedAuth will ever
// be registered; replaying a saved auth with a nil AuthFunc is an
// AuthenticationError.
func New(nodes dbconfig.NodeSet, opts Options, auths *dbconfig.AuthList, codec bsonutil.Codec, log liblog.Logger, ids *reqid.Generator, auth AuthFunc) (*Connector, liberr.Error) {
	if err := nodes.Validate(); err != nil {
		return nil, err
	}
	if opts.SlaveOK && nodes.IsPair() {
		// A paired connection with slave_ok silently forces slave_ok=false,
		// per spec.md §4.4.
		opts.SlaveOK = false
	}
	return &Connector{
		nodes: nodes,
		opts:  opts,
		auths: auths,
		codec: codec,
		log:   log,
		ids:   ids,
		auth:  auth,
	}, nil
}

// Master returns the currently elected endpoint, if any.
func (c *Connector) Master() (dbconfig.Endpoint, bool) {
	if c.master == nil {
		return dbconfig.Endpoint{}, false
	}
	return *c.master, true
}

// Clear forgets the elected master, per spec.md §8 ("After close, host ==
// null and port == null").
func (c *Connector) Clear() {
	c.master = nil
}

// Connect iterates the node set in order, probing each endpoint with an
// ismaster command, and elects the first accepted master or (single-node,
// slave_ok) slave. Every saved authentication is replayed, in insertion
// order, before Connect returns successfully.
func (c *Connector) Connect() liberr.Error {
	var merr *multierror.Error

	for _, ep := range c.nodes {
		probeID := uuid.NewString()

		conn, derr := sockio.Dial(ep.Network().String(), ep.Address(), c.opts.DialTimeout)
		if derr != nil {
			liblog.MongoDBDebug(c.log, fmt.Sprintf("probe %s: dial %s failed: %s", probeID, ep.Address(), derr), nil)
			merr = multierror.Append(merr, derr)
			continue
		}

		reply, perr := c.probe(conn)
		_ = conn.Close() // the probe socket is always discarded, per spec.md §4.4

		if perr != nil {
			liblog.MongoDBDebug(c.log, fmt.Sprintf("probe %s: ismaster against %s failed: %s", probeID, ep.Address(), perr), nil)
			merr = multierror.Append(merr, perr)
			continue
		}

		ok := truthy(reply["ok"])
		isMaster := truthy(reply["ismaster"])

		switch {
		case ok && isMaster:
			c.master = &ep
			return c.replayAuths(ep)

		case ok && !isMaster && len(c.nodes) == 1 && c.opts.SlaveOK:
			c.master = &ep
			return c.replayAuths(ep)

		case ok && !isMaster && len(c.nodes) == 1 && !c.opts.SlaveOK:
			return liberr.New(liberr.ConfigurationError, "trying to connect directly to slave")

		default:
			merr = multierror.Append(merr, fmt.Errorf("endpoint %s not accepted (ok=%v ismaster=%v)", ep.Address(), ok, isMaster))
		}
	}

	c.master = nil
	return liberr.New(liberr.ConnectionFailure, "connector: no endpoint accepted", merr.ErrorOrNil())
}

func (c *Connector) probe(conn *sockio.Conn) (bsonutil.Document, liberr.Error) {
	doc, err := c.codec.Serialize(bsonutil.Document{"ismaster": 1})
	if err != nil {
		return nil, liberr.New(liberr.ConnectionFailure, "ismaster: serializing query", err)
	}

	body := wire.BuildQueryBody(0, "admin.$cmd", 0, -1, doc)
	msg := wire.Pack(wire.Message{Opcode: wire.OpQuery, RequestID: c.ids.Next(), Body: body})

	if serr := conn.SendAll(msg); serr != nil {
		return nil, serr
	}

	resp, rerr := wire.ReadResponse(conn)
	if rerr != nil {
		return nil, rerr
	}
	if len(resp.Docs) == 0 {
		return nil, liberr.New(liberr.ConnectionFailure, "ismaster: empty reply")
	}

	reply, err := c.codec.Deserialize(resp.Docs[0])
	if err != nil {
		return nil, liberr.New(liberr.ConnectionFailure, "ismaster: deserializing reply", err)
	}
	return reply, nil
}

// replayAuths re-applies every saved authentication against ep, in
// insertion order, per spec.md §3's invariant.
func (c *Connector) replayAuths(ep dbconfig.Endpoint) liberr.Error {
	auths := c.auths.List()
	if len(auths) == 0 {
		return nil
	}
	if c.auth == nil {
		return liberr.New(liberr.AuthenticationError, "saved authentications present but no authenticator configured")
	}
	for _, a := range auths {
		if err := c.auth(ep, a); err != nil {
			return liberr.New(liberr.AuthenticationError, "replaying saved auth for db "+a.DBName, err)
		}
	}
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	default:
		return false
	}
}
