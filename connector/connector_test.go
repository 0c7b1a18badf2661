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

package connector_test

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/mongocore/bsonutil"
	"github.com/sabouaram/mongocore/connector"
	"github.com/sabouaram/mongocore/dbconfig"
	liberr "github.com/sabouaram/mongocore/internal/errors"
	liblog "github.com/sabouaram/mongocore/internal/logger"
	"github.com/sabouaram/mongocore/reqid"
	"github.com/sabouaram/mongocore/wire"
)

var jsonCodec = bsonutil.Codec{
	Serialize: func(d bsonutil.Document) ([]byte, error) {
		payload, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4+len(payload))
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
		copy(buf[4:], payload)
		return buf, nil
	},
	Deserialize: func(b []byte) (bsonutil.Document, error) {
		var d bsonutil.Document
		if err := json.Unmarshal(b[4:], &d); err != nil {
			return nil, err
		}
		return d, nil
	},
}

// startIsmasterServer listens on an ephemeral TCP port and replies to the
// single ismaster probe it expects with reply, closing the listener
// afterwards. Returns the endpoint to dial.
func startIsmasterServer(reply bsonutil.Document) dbconfig.Endpoint {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(BeNil())

	go func() {
		nc, aerr := ln.Accept()
		_ = ln.Close()
		if aerr != nil {
			return
		}
		defer nc.Close()

		hb := make([]byte, wire.HeaderSize)
		if _, err := io.ReadFull(nc, hb); err != nil {
			return
		}
		h, herr := wire.DecodeHeader(hb)
		if herr != nil {
			return
		}
		body := make([]byte, int(h.TotalLength)-wire.HeaderSize)
		if _, err := io.ReadFull(nc, body); err != nil {
			return
		}

		doc, err := jsonCodec.Serialize(reply)
		if err != nil {
			return
		}
		respHead := make([]byte, 20)
		binary.LittleEndian.PutUint32(respHead[16:20], 1)
		respBody := append(respHead, doc...)
		rh := wire.Header{
			TotalLength: int32(wire.HeaderSize + len(respBody)),
			RequestID:   1,
			ResponseTo:  h.RequestID,
			Opcode:      wire.OpReply,
		}
		_, _ = nc.Write(append(wire.EncodeHeader(rh), respBody...))
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	Expect(err).To(BeNil())
	port, err := strconv.ParseUint(portStr, 10, 16)
	Expect(err).To(BeNil())
	return dbconfig.NewEndpoint(host, uint16(port))
}

// startRefusingListener returns an endpoint nothing answers ismaster on:
// the listener accepts and immediately closes, so the probe's read fails.
func startRefusingListener() dbconfig.Endpoint {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(BeNil())
	go func() {
		nc, aerr := ln.Accept()
		_ = ln.Close()
		if aerr == nil {
			_ = nc.Close()
		}
	}()
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return dbconfig.NewEndpoint(host, uint16(port))
}

func newConnector(nodes dbconfig.NodeSet, opts connector.Options, auths *dbconfig.AuthList, auth connector.AuthFunc) *connector.Connector {
	c, err := connector.New(nodes, opts, auths, jsonCodec, liblog.New(), &reqid.Generator{}, auth)
	Expect(err).To(BeNil())
	return c
}

var _ = Describe("Connector", func() {
	It("elects a single node that reports ismaster true", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": true})
		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, dbconfig.NewAuthList(), nil)

		Expect(c.Connect()).To(BeNil())
		master, ok := c.Master()
		Expect(ok).To(BeTrue())
		Expect(master).To(Equal(ep))
	})

	It("rejects a direct slave connection without slave_ok", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": false})
		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, dbconfig.NewAuthList(), nil)

		err := c.Connect()
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.ConfigurationError))
		_, ok := c.Master()
		Expect(ok).To(BeFalse())
	})

	It("accepts a single-node slave under explicit slave_ok", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": false})
		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second, SlaveOK: true}, dbconfig.NewAuthList(), nil)

		Expect(c.Connect()).To(BeNil())
		master, ok := c.Master()
		Expect(ok).To(BeTrue())
		Expect(master).To(Equal(ep))
	})

	It("skips a non-master endpoint in a pair and elects the second", func() {
		slave := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": false})
		master := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": true})
		c := newConnector(dbconfig.NodeSet{slave, master}, connector.Options{DialTimeout: time.Second}, dbconfig.NewAuthList(), nil)

		Expect(c.Connect()).To(BeNil())
		elected, ok := c.Master()
		Expect(ok).To(BeTrue())
		Expect(elected).To(Equal(master))
	})

	It("forces slave_ok false for a pair even when requested", func() {
		a := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": false})
		b := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": false})
		c := newConnector(dbconfig.NodeSet{a, b}, connector.Options{DialTimeout: time.Second, SlaveOK: true}, dbconfig.NewAuthList(), nil)

		err := c.Connect()
		Expect(err).NotTo(BeNil())
		_, ok := c.Master()
		Expect(ok).To(BeFalse())
	})

	It("fails with ConnectionFailure and aggregates per-endpoint errors when nothing answers", func() {
		ep := startRefusingListener()
		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, dbconfig.NewAuthList(), nil)

		err := c.Connect()
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.ConnectionFailure))
		Expect(strings.Contains(err.Error(), "no endpoint accepted")).To(BeTrue())
	})

	It("replays saved auths in insertion order against the elected master", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": true})
		auths := dbconfig.NewAuthList()
		auths.Add(dbconfig.SavedAuth{DBName: "first", Username: "u1"})
		auths.Add(dbconfig.SavedAuth{DBName: "second", Username: "u2"})

		var replayed []string
		authFn := func(gotEp dbconfig.Endpoint, a dbconfig.SavedAuth) liberr.Error {
			Expect(gotEp).To(Equal(ep))
			replayed = append(replayed, a.DBName)
			return nil
		}

		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, auths, authFn)
		Expect(c.Connect()).To(BeNil())
		Expect(replayed).To(Equal([]string{"first", "second"}))
	})

	It("fails Connect with AuthenticationError when a saved auth has no authenticator", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": true})
		auths := dbconfig.NewAuthList()
		auths.Add(dbconfig.SavedAuth{DBName: "first", Username: "u1"})

		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, auths, nil)
		err := c.Connect()
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.AuthenticationError))
	})

	It("forgets the elected master on Clear", func() {
		ep := startIsmasterServer(bsonutil.Document{"ok": float64(1), "ismaster": true})
		c := newConnector(dbconfig.NodeSet{ep}, connector.Options{DialTimeout: time.Second}, dbconfig.NewAuthList(), nil)
		Expect(c.Connect()).To(BeNil())

		c.Clear()
		_, ok := c.Master()
		Expect(ok).To(BeFalse())
	})
})
