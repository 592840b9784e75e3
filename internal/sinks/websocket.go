package sinks

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"go1090/internal/tracker"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one upgraded WebSocket connection with its own bounded,
// lossy outbound queue, mirroring Broadcaster's client discipline.
type wsClient struct {
	conn  *websocket.Conn
	queue chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) enqueue(payload []byte) (dropped bool) {
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

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
	c.conn.Close()
}

func (c *wsClient) run(s *WebSocketSink) {
	defer s.remove(c)
	for payload := range c.queue {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.close()
			return
		}
		s.mu.Lock()
		s.sent++
		s.mu.Unlock()
	}
}

// readPump drains and discards client frames so control frames (ping/
// close) are still serviced by gorilla's internal handlers, and detects
// disconnects promptly.
func (c *wsClient) readPump(s *WebSocketSink) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WebSocketSink publishes rate-limited StateUpdates as BaseStation CSV
// text frames to every upgraded client. It has no listener of its own;
// callers mount Handler onto an *http.ServeMux alongside the snapshot
// server's static files and JSON endpoint.
type WebSocketSink struct {
	logger *logrus.Logger

	queueCap int

	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	sent     uint64
	dropped  uint64
	accepted uint64
}

// NewWebSocketSink creates a sink ready to have its Handler mounted.
func NewWebSocketSink(queueCap int, logger *logrus.Logger) *WebSocketSink {
	if logger == nil {
		logger = logrus.New()
	}
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	return &WebSocketSink{
		logger:   logger,
		queueCap: queueCap,
		clients:  make(map[*wsClient]struct{}),
	}
}

// Handler upgrades incoming requests and registers each as a client.
func (s *WebSocketSink) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, queue: make(chan []byte, s.queueCap)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.accepted++
	s.mu.Unlock()

	go c.run(s)
	go c.readPump(s)
}

func (s *WebSocketSink) remove(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// Publish formats and broadcasts one StateUpdate as the same CSV line
// the SBS-1 sink emits.
func (s *WebSocketSink) Publish(u tracker.StateUpdate) {
	payload := []byte(BuildSBS1(u, time.Now()))

	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	var dropped uint64
	for _, c := range clients {
		if c.enqueue(payload) {
			dropped++
		}
	}
	if dropped > 0 {
		s.mu.Lock()
		s.dropped += dropped
		s.mu.Unlock()
	}
}

// Snapshot returns the sink's connection/delivery counters.
func (s *WebSocketSink) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{
		Clients:  len(s.clients),
		Sent:     s.sent,
		Dropped:  s.dropped,
		Accepted: s.accepted,
	}
}

// Close disconnects every client.
func (s *WebSocketSink) Close() {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
