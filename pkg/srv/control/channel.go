/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"jinr.ru/greenlab/go-ibob/pkg/layers"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/srv/control/ifc"
)

const (
	DefaultBudget         = time.Second
	DefaultAttemptTimeout = 200 * time.Millisecond
	ReadBufferSize        = 4096
	// flushWait bounds the wait for one stale datagram while draining
	flushWait = time.Millisecond
	// flushLimit bounds the number of stale datagrams drained per call
	flushLimit = 1024
	// errorBackoff keeps a failing socket from spinning the poll loop
	errorBackoff = 5 * time.Millisecond
)

// Conn is the part of a connected UDP socket the channel needs
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Channel is the reliable request/response protocol over one control socket.
// Every attempt of a call gets a fresh request id unless ReuseRequestID is set,
// so responses to earlier attempts are rejected as stale.
type Channel struct {
	mu             sync.Mutex
	name           string
	conn           Conn
	counter        uint32
	budget         time.Duration
	attemptTimeout time.Duration
	reuseRequestID bool
	buf            []byte
}

var _ ifc.Channel = &Channel{}

type Option func(*Channel)

func WithBudget(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.budget = d
		}
	}
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithReuseRequestID keeps one request id for all attempts of a call
func WithReuseRequestID(reuse bool) Option {
	return func(c *Channel) {
		c.reuseRequestID = reuse
	}
}

func NewChannel(name string, conn Conn, opts ...Option) *Channel {
	c := &Channel{
		name:           name,
		conn:           conn,
		budget:         DefaultBudget,
		attemptTimeout: DefaultAttemptTimeout,
		buf:            make([]byte, ReadBufferSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects a control socket to the board command port
func Dial(name, address string, opts ...Option) (*Channel, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	log.Info("Control channel %s connected to %s", name, raddr)
	return NewChannel(name, conn, opts...), nil
}

func (c *Channel) Close() error {
	return c.conn.Close()
}

func (c *Channel) nextRequestID() uint32 {
	id := uint32(layers.ControlRequestIDSentinel) | c.counter
	c.counter++
	if c.counter > layers.ControlCounterLimit {
		c.counter = 0
	}
	return id
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// flush drops whatever arrived since the previous call
func (c *Channel) flush() {
	for i := 0; i < flushLimit; i++ {
		if err := c.conn.SetReadDeadline(time.Now().Add(flushWait)); err != nil {
			return
		}
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if isTimeout(err) {
				return
			}
			continue
		}
		log.Debug("%s flushed stale control datagram: %d bytes", c.name, n)
	}
}

// Send transmits a command and waits for its complete response. Attempts are
// repeated until the budget runs out, then ErrControlTimeout is returned.
func (c *Channel) Send(message string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	deadline := start.Add(c.budget)
	c.flush()

	attempts := 0
	var id uint32
	for time.Now().Before(deadline) {
		if attempts == 0 || !c.reuseRequestID {
			id = c.nextRequestID()
		}
		attempts++

		request, err := layers.NewControlRequest(id, message)
		if err != nil {
			return nil, err
		}
		if _, err = c.conn.Write(request); err != nil {
			log.Debug("%s error while sending '%s': %s", c.name, message, err)
		}

		until := time.Now().Add(c.attemptTimeout)
		if until.After(deadline) {
			until = deadline
		}
		if resp, ok := c.collect(id, until); ok {
			log.Debug("%s cmd '%s' response in %.2f ms: %q",
				c.name, message, float64(time.Since(start))/float64(time.Millisecond), resp)
			return resp, nil
		}
		log.Debug("%s no response to '%s' attempt %d id %08X", c.name, message, attempts, id)
	}
	return nil, ErrControlTimeout{
		Device:   c.name,
		Command:  message,
		Attempts: attempts,
		Elapsed:  time.Since(start),
	}
}

// collect accumulates in-order fragments of the response to request id
func (c *Channel) collect(id uint32, until time.Time) ([]byte, bool) {
	var resp []byte
	var next uint16
	for time.Now().Before(until) {
		if err := c.conn.SetReadDeadline(until); err != nil {
			return nil, false
		}
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if isTimeout(err) {
				break
			}
			log.Debug("%s error while reading control socket: %s", c.name, err)
			time.Sleep(errorBackoff)
			continue
		}
		h, payload, err := layers.DecodeControl(c.buf[:n])
		if err != nil {
			log.Debug("%s received: %q", c.name, c.buf[:n])
			continue
		}
		if h.RequestID != id {
			log.Debug("%s expected msgid %08X but got %08X", c.name, id, h.RequestID)
			continue
		}
		if h.Sequence != next {
			log.Debug("%s sequence error: expected seq: %d got %d", c.name, next, h.Sequence)
			continue
		}
		resp = append(resp, payload...)
		if h.Final() {
			return resp, true
		}
		next++
	}
	return nil, false
}
