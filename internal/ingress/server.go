// Package ingress exposes a websocket endpoint where packet forwarders
// submit uplinks and receive downlinks.
package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/router"
)

const (
	readLimit  = 64 * 1024
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Frame is the JSON envelope exchanged with forwarders.
type Frame struct {
	// Type is "uplink" from forwarders and "downlink" to them.
	Type   string         `json:"type"`
	Packet *packet.Packet `json:"packet"`
}

// Server accepts forwarder connections. Uplinks are pushed as
// router.PacketDispatch events; downlinks are broadcast to every
// connected forwarder.
type Server struct {
	upgrader websocket.Upgrader
	out      chan router.Dispatch
	log      zerolog.Logger

	mu    sync.RWMutex
	conns map[uint64]*conn
	next  uint64

	received atomic.Uint64
	dropped  atomic.Uint64
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// NewServer creates a server whose uplink stream buffers up to size events.
func NewServer(size int, log zerolog.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		out:   make(chan router.Dispatch, size),
		log:   log,
		conns: make(map[uint64]*conn),
	}
}

// Dispatches is the event stream consumed by router.Client.Run.
func (s *Server) Dispatches() <-chan router.Dispatch {
	return s.out
}

// Received returns the number of uplinks accepted.
func (s *Server) Received() uint64 {
	return s.received.Load()
}

// Dropped returns the number of uplinks discarded because the stream was full.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Connections returns the number of connected forwarders.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &conn{ws: ws, send: make(chan []byte, 64), done: make(chan struct{})}
	s.mu.Lock()
	s.next++
	id := s.next
	s.conns[id] = c
	s.mu.Unlock()
	s.log.Debug().Uint64("conn", id).Str("remote", r.RemoteAddr).Msg("forwarder connected")

	go s.writeLoop(c)
	s.readLoop(c)

	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	c.close()
	s.log.Debug().Uint64("conn", id).Msg("forwarder disconnected")
}

func (s *Server) readLoop(c *conn) {
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("forwarder read failed")
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type != "uplink" || f.Packet == nil {
			s.log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}

		select {
		case s.out <- router.PacketDispatch{Packet: f.Packet}:
			s.received.Add(1)
		default:
			s.dropped.Add(1)
			s.log.Warn().Msg("uplink stream full, dropping packet")
		}
	}
}

func (s *Server) writeLoop(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// Broadcast sends a downlink to every connected forwarder. Slow
// forwarders miss the packet.
func (s *Server) Broadcast(p *packet.Packet) {
	data, err := json.Marshal(Frame{Type: "downlink", Packet: p})
	if err != nil {
		s.log.Error().Err(err).Msg("encoding downlink")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, c := range s.conns {
		select {
		case c.send <- data:
		default:
			s.log.Warn().Uint64("conn", id).Msg("forwarder send buffer full")
		}
	}
}

// Forward broadcasts every packet from downlinks until it is closed or ctx
// is done.
func (s *Server) Forward(ctx context.Context, downlinks <-chan *packet.Packet) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-downlinks:
			if !ok {
				return nil
			}
			s.Broadcast(p)
		}
	}
}

// Close disconnects every forwarder.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.conns {
		c.close()
		delete(s.conns, id)
	}
}
