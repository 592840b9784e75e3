package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/tracker"
)

// AircraftProvider supplies a coherent point-in-time copy of the active
// aircraft set, as produced by Tracker.Snapshot.
type AircraftProvider func() []*tracker.AircraftState

// StatsProvider supplies whatever the rate limiter (or other component)
// wants exposed on the control port's "stats" command; the returned
// value is marshaled directly to JSON.
type StatsProvider func() interface{}

// HTTPServer serves the embedded web map's static assets, a JSON
// snapshot of active aircraft, and (if a WebSocketSink is supplied) the
// WebSocket upgrade endpoint, all on one net/http server. A single
// read-only JSON handler and static file serving don't warrant pulling
// in a routing framework.
type HTTPServer struct {
	srv    *http.Server
	logger *logrus.Logger
}

// NewHTTPServer builds the server; call Serve to start listening.
// frontendPath may be empty, in which case "/" serves nothing.
func NewHTTPServer(addr, frontendPath string, aircraft AircraftProvider, ws *WebSocketSink, logger *logrus.Logger) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}

	mux := http.NewServeMux()
	if frontendPath != "" {
		mux.Handle("/", http.FileServer(http.Dir(frontendPath)))
	}
	mux.HandleFunc("/aircraft.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(aircraft())
	})
	if ws != nil {
		mux.HandleFunc("/ws", ws.Handler)
	}

	return &HTTPServer{
		srv:    &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Serve starts the HTTP server in the background. Errors after a
// successful bind are logged, not returned, since ListenAndServe always
// returns non-nil on normal shutdown (http.ErrServerClosed).
func (h *HTTPServer) Serve() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("snapshot http server exited")
		}
	}()
	return nil
}

// Close gracefully shuts the HTTP server down.
func (h *HTTPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.srv.Shutdown(ctx)
}

// ControlServer is the line-based TCP control port: each accepted
// connection reads newline-terminated commands ("stats" or "aircraft")
// and writes back one JSON line per command.
type ControlServer struct {
	listener net.Listener
	logger   *logrus.Logger

	aircraft AircraftProvider
	stats    StatsProvider

	stop chan struct{}
}

// NewControlServer binds addr and returns a server ready for Serve.
func NewControlServer(addr string, aircraft AircraftProvider, stats StatsProvider, logger *logrus.Logger) (*ControlServer, error) {
	if logger == nil {
		logger = logrus.New()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &ControlServer{
		listener: l,
		logger:   logger,
		aircraft: aircraft,
		stats:    stats,
		stop:     make(chan struct{}),
	}, nil
}

// Serve runs the accept loop in the background.
func (c *ControlServer) Serve() {
	go func() {
		for {
			conn, err := c.listener.Accept()
			if err != nil {
				select {
				case <-c.stop:
					return
				default:
				}
				c.logger.WithError(err).Debug("control port accept failed, retrying")
				continue
			}
			go c.handle(conn)
		}
	}()
}

func (c *ControlServer) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		var payload interface{}
		switch cmd {
		case "stats":
			if c.stats != nil {
				payload = c.stats()
			}
		case "aircraft":
			if c.aircraft != nil {
				payload = c.aircraft()
			}
		default:
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		line, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		if _, err := conn.Write(append(line, '\n')); err != nil {
			return
		}
	}
}

// Close stops accepting new connections.
func (c *ControlServer) Close() error {
	close(c.stop)
	return c.listener.Close()
}
