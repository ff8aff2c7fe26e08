// Package transport carries framed state channel messages between the
// router client and its router over TCP or TLS.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
)

// State represents the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Service is a single session with a router. Its inbound stream is closed
// when the session ends; a new Service is needed to reconnect.
type Service struct {
	mu sync.RWMutex

	cfg   Config
	conn  net.Conn
	state State

	send     chan []byte
	messages chan message.Inbound
	traffic  *TrafficCounter
	log      zerolog.Logger

	started     bool
	failErr     error
	closeCh     chan struct{}
	closed      atomic.Bool
	closeStream sync.Once
	wg          sync.WaitGroup
}

// New creates a disconnected transport.
func New(opts ...Option) *Service {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = DefaultSendBufferSize
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = DefaultMessageBufferSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	return &Service{
		cfg:      cfg,
		state:    StateDisconnected,
		send:     make(chan []byte, cfg.SendBufferSize),
		messages: make(chan message.Inbound, cfg.MessageBufferSize),
		traffic:  NewTrafficCounter(),
		log:      cfg.Logger.With().Str("module", "transport").Str("uri", cfg.Address).Logger(),
		closeCh:  make(chan struct{}),
	}
}

// State returns the current connection state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Traffic returns the traffic counters.
func (s *Service) Traffic() *TrafficCounter {
	return s.traffic
}

// Connect dials the router and starts the read and write loops. It is a
// no-op while connecting or connected.
func (s *Service) Connect(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.cfg.Address == "" {
		return ErrInvalidAddress
	}

	s.mu.Lock()
	if s.state != StateDisconnected || s.started {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		s.setState(StateDisconnected)
		return NewConnError(s.cfg.Address, "connect", err)
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.state = StateConnected
	s.started = true
	s.mu.Unlock()

	s.log.Info().Bool("tls", s.cfg.TLSConfig != nil).Msg("connected")

	s.wg.Add(2)
	go s.readLoop(conn)
	go s.writeLoop(conn)
	return nil
}

func (s *Service) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.cfg.ConnectTimeout}
	if s.cfg.TLSConfig == nil {
		return dialer.DialContext(ctx, "tcp", s.cfg.Address)
	}
	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.cfg.TLSConfig}
	return tlsDialer.DialContext(ctx, "tcp", s.cfg.Address)
}

// Send encodes msg and queues it for the write loop without blocking.
func (s *Service) Send(ctx context.Context, msg *message.Message) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.State() != StateConnected {
		return ErrNotConnected
	}

	var buf bytes.Buffer
	if _, err := message.WriteMessage(&buf, msg, s.cfg.Compression); err != nil {
		return NewConnError(s.cfg.Address, "encode", err)
	}

	select {
	case s.send <- buf.Bytes():
		s.traffic.Add(msg.Type(), false, buf.Len())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBufferFull
	}
}

// Messages returns the inbound stream.
func (s *Service) Messages() <-chan message.Inbound {
	return s.messages
}

// Capacity returns the free slots in the send buffer, or 0 when not
// connected.
func (s *Service) Capacity() int {
	if s.closed.Load() || s.State() != StateConnected {
		return 0
	}
	return cap(s.send) - len(s.send)
}

func (s *Service) readLoop(conn net.Conn) {
	defer s.wg.Done()
	defer s.closeStream.Do(func() { close(s.messages) })

	for {
		msg, n, err := message.ReadMessage(conn)
		if err != nil {
			s.endStream(err)
			return
		}
		s.traffic.Add(msg.Type(), true, n)

		select {
		case s.messages <- message.Inbound{Message: msg}:
		case <-s.closeCh:
			return
		}
	}
}

// endStream reports why the read loop stopped. A local close or a clean
// remote close at a frame boundary ends the stream without an error.
func (s *Service) endStream(err error) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	if s.failErr != nil {
		err = s.failErr
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	if errors.Is(err, io.EOF) {
		s.log.Info().Msg("router closed the connection")
		return
	}

	s.log.Warn().Err(err).Msg("state channel stream failed")
	select {
	case s.messages <- message.Inbound{Err: NewConnError(s.cfg.Address, "read", err)}:
	case <-s.closeCh:
	}
}

func (s *Service) writeLoop(conn net.Conn) {
	defer s.wg.Done()

	for {
		select {
		case <-s.closeCh:
			return
		case data := <-s.send:
			if _, err := conn.Write(data); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

// fail records a write error and closes the connection so the read loop
// reports it.
func (s *Service) fail(err error) {
	s.mu.Lock()
	if s.failErr == nil {
		s.failErr = err
	}
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Close ends the session and waits for the loops to exit. The inbound
// stream is closed without an error.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	s.state = StateClosing
	close(s.closeCh)
	conn := s.conn
	s.conn = nil
	started := s.started
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.wg.Wait()
	if !started {
		s.closeStream.Do(func() { close(s.messages) })
	}

	s.setState(StateDisconnected)
	return err
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
