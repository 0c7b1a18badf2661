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

// Package reqrouter exposes the send / send_with_safe_check / receive
// operations described in spec.md §4.5: the synchronous request/response
// surface the higher-level database façade is built on.
package reqrouter

import (
	"fmt"
	"sync"

	"github.com/sabouaram/mongocore/bsonutil"
	liberr "github.com/sabouaram/mongocore/internal/errors"
	liblog "github.com/sabouaram/mongocore/internal/logger"
	"github.com/sabouaram/mongocore/pool"
	"github.com/sabouaram/mongocore/reqid"
	"github.com/sabouaram/mongocore/sockio"
	"github.com/sabouaram/mongocore/wire"
)

// recognizedSafeOpts are the only keys send_with_safe_check accepts in its
// safeOpts map, per spec.md §6.
var recognizedSafeOpts = map[string]struct{}{
	"w":        {},
	"wtimeout": {},
	"fsync":    {},
}

// Router serializes request/response round-trips over the connection's
// socket pool.
type Router struct {
	Pool  *pool.Pool
	Codec bsonutil.Codec
	Log   liblog.Logger
	IDs   *reqid.Generator

	// Teardown is invoked on any ConnectionFailure, tearing down the whole
	// connection so the next operation re-enters the connector, per
	// spec.md §7.
	Teardown func()

	// wireMu is the dedicated mutex of spec.md §4.5/§5: it serializes the
	// send-then-receive critical section of send_with_safe_check and
	// receive so replies can never be misattributed between concurrent
	// callers.
	wireMu sync.Mutex
}

func (r *Router) logSend(body []byte, logMessage string) {
	if logMessage == "" {
		logMessage = fmt.Sprintf("%x", body)
	}
	liblog.MongoDBDebug(r.Log, logMessage, nil)
}

// Send is the fire-and-forget operation: checkout, pack, send_all,
// checkin. No reply is read, per spec.md §4.5.
func (r *Router) Send(opcode wire.Opcode, body []byte, logMessage string) liberr.Error {
	conn, err := r.Pool.Checkout()
	if err != nil {
		return err
	}
	defer r.Pool.Checkin(conn)

	r.logSend(body, logMessage)

	msg := wire.Pack(wire.Message{Opcode: opcode, RequestID: r.IDs.Next(), Body: body})
	if serr := conn.SendAll(msg); serr != nil {
		r.onFailure(serr)
		return serr
	}
	return nil
}

// Result is the decoded outcome of a round-trip: the returned documents,
// the count the server reported, and the cursor id it assigned (surfaced,
// not iterated — spec.md §1 non-goals exclude cursor iteration here).
type Result struct {
	Docs     []bsonutil.Document
	Count    int32
	CursorID int64
}

// Receive implements spec.md §4.5's receive(): a query/command with a
// reply. If conn is non-nil it is used directly (no checkout/checkin);
// otherwise one is checked out and checked back in around the call.
func (r *Router) Receive(opcode wire.Opcode, body []byte, logMessage string, conn *sockio.Conn) (*Result, liberr.Error) {
	owned := conn == nil
	if owned {
		c, err := r.Pool.Checkout()
		if err != nil {
			return nil, err
		}
		conn = c
		defer r.Pool.Checkin(conn)
	}

	r.wireMu.Lock()
	defer r.wireMu.Unlock()

	r.logSend(body, logMessage)

	msg := wire.Pack(wire.Message{Opcode: opcode, RequestID: r.IDs.Next(), Body: body})
	if serr := conn.SendAll(msg); serr != nil {
		r.onFailure(serr)
		return nil, serr
	}

	resp, rerr := wire.ReadResponse(conn)
	if rerr != nil {
		r.onFailure(rerr)
		return nil, rerr
	}

	docs, derr := r.decodeAll(resp.Docs)
	if derr != nil {
		return nil, derr
	}

	return &Result{Docs: docs, Count: resp.NumberReturned, CursorID: resp.CursorID}, nil
}

// SendWithSafeCheck implements spec.md §4.5's send_with_safe_check(): the
// write message and a getLastError command are written to the same socket
// in one send_all call, then a single reply is read and checked for a
// server-reported error.
func (r *Router) SendWithSafeCheck(opcode wire.Opcode, body []byte, dbName string, safeOpts bsonutil.Document, logMessage string) (*Result, liberr.Error) {
	if err := validateSafeOpts(safeOpts); err != nil {
		return nil, err
	}

	gle := bsonutil.Document{"getlasterror": 1}
	for k, v := range safeOpts {
		gle[k] = v
	}
	gleDoc, err := r.Codec.Serialize(gle)
	if err != nil {
		return nil, liberr.New(liberr.ArgumentError, "send_with_safe_check: serializing getLastError", err)
	}

	conn, cerr := r.Pool.Checkout()
	if cerr != nil {
		return nil, cerr
	}
	defer r.Pool.Checkin(conn)

	r.wireMu.Lock()
	defer r.wireMu.Unlock()

	r.logSend(body, logMessage)

	writeMsg := wire.Pack(wire.Message{Opcode: opcode, RequestID: r.IDs.Next(), Body: body})
	gleBody := wire.BuildQueryBody(0, dbName+".$cmd", 0, -1, gleDoc)
	gleMsg := wire.Pack(wire.Message{Opcode: wire.OpQuery, RequestID: r.IDs.Next(), Body: gleBody})

	combined := make([]byte, 0, len(writeMsg)+len(gleMsg))
	combined = append(combined, writeMsg...)
	combined = append(combined, gleMsg...)

	if serr := conn.SendAll(combined); serr != nil {
		r.onFailure(serr)
		return nil, serr
	}

	resp, rerr := wire.ReadResponse(conn)
	if rerr != nil {
		r.onFailure(rerr)
		return nil, rerr
	}

	docs, derr := r.decodeAll(resp.Docs)
	if derr != nil {
		return nil, derr
	}

	if len(docs) > 0 {
		if msg := operationErrorMessage(docs[0]); msg != "" {
			return nil, liberr.New(liberr.OperationFailure, msg)
		}
	}

	return &Result{Docs: docs, Count: resp.NumberReturned, CursorID: resp.CursorID}, nil
}

func (r *Router) decodeAll(raw [][]byte) ([]bsonutil.Document, liberr.Error) {
	docs := make([]bsonutil.Document, 0, len(raw))
	for i, b := range raw {
		d, err := r.Codec.Deserialize(b)
		if err != nil {
			ferr := liberr.Newf(liberr.ConnectionFailure, "decoding document %d: %s", i, err)
			r.onFailure(ferr)
			return nil, ferr
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (r *Router) onFailure(err liberr.Error) {
	if err != nil && err.Code().Teardown() && r.Teardown != nil {
		r.Teardown()
	}
}

func validateSafeOpts(opts bsonutil.Document) liberr.Error {
	for k := range opts {
		if _, ok := recognizedSafeOpts[k]; !ok {
			return liberr.Newf(liberr.ArgumentError, "send_with_safe_check: unrecognized safe option %q", k)
		}
	}
	return nil
}

// operationErrorMessage returns the non-null err/errmsg string from a
// getLastError reply document, or "" when the write succeeded.
func operationErrorMessage(doc bsonutil.Document) string {
	if v, ok := doc["err"]; ok && v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if v, ok := doc["errmsg"]; ok && v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
