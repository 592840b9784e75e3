// Package sinks implements the fan-out side of the pipeline: the BEAST,
// Raw-hex, AVR, SBS-1, and WebSocket broadcasters, plus the HTTP/TCP
// snapshot and control server. Every broadcaster shares the same
// bounded, lossy, per-client queue discipline so a slow client can never
// stall the decode pipeline.
package sinks

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultQueueCap is the per-client outbound queue depth. When full, the
// oldest queued message is dropped to make room for the newest.
const DefaultQueueCap = 1024

// writeTimeout bounds how long a single client write may block before
// the client is dropped.
const writeTimeout = 5 * time.Second

// Counters tracks a broadcaster's lifetime delivery statistics.
type Counters struct {
	Clients  int    `json:"clients"`
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Accepted uint64 `json:"accepted"`
}

// client is one connected consumer of a broadcaster: a bounded queue of
// pending payloads drained by a dedicated writer goroutine.
type client struct {
	conn  net.Conn
	queue chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn net.Conn, queueCap int) *client {
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	return &client{conn: conn, queue: make(chan []byte, queueCap)}
}

// enqueue implements the oldest-drop policy: if the queue is full, pop
// one pending message off the front before pushing the new one, so the
// call never blocks the caller (the decode pipeline or rate limiter).
func (c *client) enqueue(payload []byte) (dropped bool) {
	for {
		select {
		case c.queue <- payload:
			return dropped
		default:
			select {
			case <-c.queue:
				dropped = true
			default:
			}
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
	c.conn.Close()
}

// run drains the client's queue to its connection until the queue is
// closed or a write fails; either way it unregisters itself from the
// broadcaster.
func (c *client) run(b *Broadcaster) {
	defer b.remove(c)
	for payload := range c.queue {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(payload); err != nil {
			c.close()
			return
		}
		b.mu.Lock()
		b.sent++
		b.mu.Unlock()
	}
}

// Broadcaster is a TCP listener with a bounded-queue fan-out to every
// connected client. It never blocks: Send enqueues onto each client's
// own queue and returns immediately.
type Broadcaster struct {
	name     string
	logger   *logrus.Logger
	queueCap int

	listener net.Listener

	mu       sync.Mutex
	clients  map[*client]struct{}
	sent     uint64
	dropped  uint64
	accepted uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewBroadcaster wraps an already-bound listener. Callers create the
// listener (net.Listen) so the sink's port is known before Serve is
// called; Serve runs the accept loop in a background goroutine.
func NewBroadcaster(name string, listener net.Listener, queueCap int, logger *logrus.Logger) *Broadcaster {
	if logger == nil {
		logger = logrus.New()
	}
	return &Broadcaster{
		name:     name,
		logger:   logger,
		queueCap: queueCap,
		listener: listener,
		clients:  make(map[*client]struct{}),
		stop:     make(chan struct{}),
	}
}

// Serve runs the accept loop until Close is called. A failed Accept is
// logged and retried rather than aborting the sink.
func (b *Broadcaster) Serve() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			conn, err := b.listener.Accept()
			if err != nil {
				select {
				case <-b.stop:
					return
				default:
				}
				b.logger.WithError(err).WithField("sink", b.name).Debug("accept failed, retrying")
				continue
			}
			b.register(conn)
		}
	}()
}

func (b *Broadcaster) register(conn net.Conn) {
	c := newClient(conn, b.queueCap)
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.accepted++
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		c.run(b)
	}()
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
}

// Send fans payload out to every connected client's queue, incrementing
// the drop counter for any client whose queue was already full.
func (b *Broadcaster) Send(payload []byte) {
	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	var dropped uint64
	for _, c := range clients {
		if c.enqueue(payload) {
			dropped++
		}
	}
	if dropped > 0 {
		b.mu.Lock()
		b.dropped += dropped
		b.mu.Unlock()
	}
}

// Snapshot returns the broadcaster's current counters.
func (b *Broadcaster) Snapshot() Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counters{
		Clients:  len(b.clients),
		Sent:     b.sent,
		Dropped:  b.dropped,
		Accepted: b.accepted,
	}
}

// Close stops the accept loop, closes every connected client, and
// blocks until all writer goroutines have exited.
func (b *Broadcaster) Close() error {
	close(b.stop)
	err := b.listener.Close()

	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	b.wg.Wait()
	return err
}
