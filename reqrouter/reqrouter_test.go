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

package reqrouter_test

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/mongocore/bsonutil"
	liberr "github.com/sabouaram/mongocore/internal/errors"
	"github.com/sabouaram/mongocore/pool"
	"github.com/sabouaram/mongocore/reqid"
	"github.com/sabouaram/mongocore/reqrouter"
	"github.com/sabouaram/mongocore/sockio"
	"github.com/sabouaram/mongocore/wire"
)

// jsonCodec is a throwaway bsonutil.Codec for these tests: each "document"
// is a 4-byte little-endian length (including itself) followed by a JSON
// object, satisfying wire.ReadResponse's length-prefixed-document contract
// without pulling in a real BSON library.
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

// readFrame reads one standard-header-prefixed frame off nc and returns its
// header and body, the server side of what reqrouter.Router sends.
func readFrame(nc net.Conn) (wire.Header, []byte) {
	hb := make([]byte, wire.HeaderSize)
	_, err := io.ReadFull(nc, hb)
	Expect(err).To(BeNil())
	h, herr := wire.DecodeHeader(hb)
	Expect(herr).To(BeNil())
	body := make([]byte, int(h.TotalLength)-wire.HeaderSize)
	_, err = io.ReadFull(nc, body)
	Expect(err).To(BeNil())
	return h, body
}

// writeReply writes one OP_REPLY frame carrying docs back to nc.
func writeReply(nc net.Conn, requestID int32, docs []bsonutil.Document) {
	var rawDocs [][]byte
	for _, d := range docs {
		b, err := jsonCodec.Serialize(d)
		Expect(err).To(BeNil())
		rawDocs = append(rawDocs, b)
	}

	var body []byte
	head := make([]byte, 20)
	binary.LittleEndian.PutUint32(head[12:16], 0)
	binary.LittleEndian.PutUint32(head[16:20], uint32(len(rawDocs)))
	body = append(body, head...)
	for _, d := range rawDocs {
		body = append(body, d...)
	}

	h := wire.Header{
		TotalLength: int32(wire.HeaderSize + len(body)),
		RequestID:   1,
		ResponseTo:  requestID,
		Opcode:      wire.OpReply,
	}
	frame := append(wire.EncodeHeader(h), body...)
	_, err := nc.Write(frame)
	Expect(err).To(BeNil())
}

func newPipeRouter() (*reqrouter.Router, net.Conn, func()) {
	client, server := net.Pipe()
	var teardownCalled bool

	p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, func() (*sockio.Conn, liberr.Error) {
		return sockio.Wrap(client), nil
	})

	r := &reqrouter.Router{
		Pool:  p,
		Codec: jsonCodec,
		IDs:   &reqid.Generator{},
		Teardown: func() {
			teardownCalled = true
		},
	}
	return r, server, func() { _ = teardownCalled }
}

var _ = Describe("Router", func() {
	It("Send writes a fire-and-forget frame with no reply read", func() {
		r, server, _ := newPipeRouter()
		defer server.Close()

		done := make(chan struct{})
		var gotBody []byte
		go func() {
			defer close(done)
			_, body := readFrame(server)
			gotBody = body
		}()

		err := r.Send(wire.OpQuery, []byte("payload"), "")
		Expect(err).To(BeNil())
		Eventually(done).Should(BeClosed())
		Expect(gotBody).To(Equal([]byte("payload")))
	})

	It("Receive round-trips a query and decodes the reply documents", func() {
		r, server, _ := newPipeRouter()
		defer server.Close()

		go func() {
			h, _ := readFrame(server)
			writeReply(server, h.RequestID, []bsonutil.Document{{"ok": float64(1)}})
		}()

		result, err := r.Receive(wire.OpQuery, []byte("query"), "", nil)
		Expect(err).To(BeNil())
		Expect(result.Count).To(Equal(int32(1)))
		Expect(result.Docs).To(HaveLen(1))
		Expect(result.Docs[0]["ok"]).To(Equal(float64(1)))
	})

	It("SendWithSafeCheck combines the write and getLastError into one send_all", func() {
		r, server, _ := newPipeRouter()
		defer server.Close()

		go func() {
			h1, _ := readFrame(server)
			h2, gleBody := readFrame(server)
			Expect(h2.Opcode).To(Equal(wire.OpQuery))
			Expect(string(gleBody)).To(ContainSubstring("admin.$cmd"))
			writeReply(server, h1.RequestID+1, []bsonutil.Document{{"ok": float64(1)}})
			_ = h2
		}()

		result, err := r.SendWithSafeCheck(wire.OpQuery, []byte("insert-body"), "admin", nil, "")
		Expect(err).To(BeNil())
		Expect(result.Docs[0]["ok"]).To(Equal(float64(1)))
	})

	It("SendWithSafeCheck surfaces a server-reported errmsg as OperationFailure", func() {
		r, server, _ := newPipeRouter()
		defer server.Close()

		go func() {
			readFrame(server)
			h2, _ := readFrame(server)
			writeReply(server, h2.RequestID, []bsonutil.Document{{"ok": float64(0), "errmsg": "duplicate key"}})
		}()

		_, err := r.SendWithSafeCheck(wire.OpQuery, []byte("insert-body"), "admin", nil, "")
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.OperationFailure))
	})

	It("SendWithSafeCheck rejects an unrecognized safe option before touching the wire", func() {
		r, server, _ := newPipeRouter()
		defer server.Close()

		_, err := r.SendWithSafeCheck(wire.OpQuery, []byte("x"), "admin", bsonutil.Document{"bogus": true}, "")
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.ArgumentError))
	})

	It("Receive against a closed peer triggers Teardown", func() {
		client, server := net.Pipe()
		var called bool

		p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, func() (*sockio.Conn, liberr.Error) {
			return sockio.Wrap(client), nil
		})
		r := &reqrouter.Router{
			Pool:     p,
			Codec:    jsonCodec,
			IDs:      &reqid.Generator{},
			Teardown: func() { called = true },
		}

		go func() {
			readFrame(server)
			server.Close()
		}()

		_, err := r.Receive(wire.OpQuery, []byte("query"), "", nil)
		Expect(err).NotTo(BeNil())
		Eventually(func() bool { return called }).Should(BeTrue())
	})
})
