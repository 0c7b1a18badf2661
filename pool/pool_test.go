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

package pool_test

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/sabouaram/mongocore/internal/errors"
	"github.com/sabouaram/mongocore/pool"
	"github.com/sabouaram/mongocore/sockio"
)

// newCountingDialer returns a Dialer backed by net.Pipe, plus a counter of
// how many times it actually dialed (as opposed to reusing an idle socket).
func newCountingDialer() (pool.Dialer, *int32) {
	var calls int32
	dial := func() (*sockio.Conn, liberr.Error) {
		atomic.AddInt32(&calls, 1)
		client, server := net.Pipe()
		go func() {
			buf := make([]byte, 1)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return sockio.Wrap(client), nil
	}
	return dial, &calls
}

var _ = Describe("Pool", func() {
	It("opens fresh sockets up to pool_size, then blocks", func() {
		dial, calls := newCountingDialer()
		p := pool.New(pool.Config{Size: 2, Timeout: 200 * time.Millisecond}, dial)

		c1, err1 := p.Checkout()
		Expect(err1).To(BeNil())
		c2, err2 := p.Checkout()
		Expect(err2).To(BeNil())
		Expect(atomic.LoadInt32(calls)).To(Equal(int32(2)))

		sockets, checkedOut := p.Stats()
		Expect(sockets).To(Equal(2))
		Expect(checkedOut).To(Equal(2))

		_, err3 := p.Checkout()
		Expect(err3).NotTo(BeNil())
		Expect(err3.Code()).To(Equal(liberr.ConnectionTimeout))

		p.Checkin(c1)
		p.Checkin(c2)
	})

	It("reuses an idle socket instead of dialing again", func() {
		dial, calls := newCountingDialer()
		p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, dial)

		c1, err := p.Checkout()
		Expect(err).To(BeNil())
		p.Checkin(c1)

		c2, err := p.Checkout()
		Expect(err).To(BeNil())
		Expect(c2).To(BeIdenticalTo(c1))
		Expect(atomic.LoadInt32(calls)).To(Equal(int32(1)))
	})

	It("wakes a blocked checkout as soon as a socket is checked back in", func() {
		dial, _ := newCountingDialer()
		p := pool.New(pool.Config{Size: 1, Timeout: 2 * time.Second}, dial)

		c1, err := p.Checkout()
		Expect(err).To(BeNil())

		var wg sync.WaitGroup
		wg.Add(1)
		var got *sockio.Conn
		var gotErr liberr.Error
		go func() {
			defer wg.Done()
			got, gotErr = p.Checkout()
		}()

		time.Sleep(50 * time.Millisecond)
		p.Checkin(c1)
		wg.Wait()

		Expect(gotErr).To(BeNil())
		Expect(got).To(BeIdenticalTo(c1))
	})

	It("empties its sets on Teardown and lets the next Checkout dial fresh", func() {
		dial, calls := newCountingDialer()
		p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, dial)

		c1, err := p.Checkout()
		Expect(err).To(BeNil())
		p.Checkin(c1)

		p.Teardown()
		sockets, checkedOut := p.Stats()
		Expect(sockets).To(Equal(0))
		Expect(checkedOut).To(Equal(0))

		c2, err := p.Checkout()
		Expect(err).To(BeNil())
		Expect(c2).NotTo(BeIdenticalTo(c1))
		Expect(atomic.LoadInt32(calls)).To(Equal(int32(2)))
	})

	It("ignores a checkin of a socket discarded by a prior Teardown", func() {
		dial, _ := newCountingDialer()
		p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, dial)

		c1, err := p.Checkout()
		Expect(err).To(BeNil())
		p.Teardown()

		Expect(func() { p.Checkin(c1) }).NotTo(Panic())
		sockets, _ := p.Stats()
		Expect(sockets).To(Equal(0))
	})

	It("fails every Checkout immediately after Shutdown", func() {
		dial, _ := newCountingDialer()
		p := pool.New(pool.Config{Size: 1, Timeout: time.Second}, dial)
		p.Shutdown()

		_, err := p.Checkout()
		Expect(err).NotTo(BeNil())
		Expect(err.Code()).To(Equal(liberr.ConnectionFailure))
	})
})
