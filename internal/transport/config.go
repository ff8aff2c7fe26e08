package transport

import (
	"crypto/tls"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultSendBufferSize    = 32
	DefaultMessageBufferSize = 64
)

// Config holds the transport settings.
type Config struct {
	// Address is the router's host:port.
	Address string

	// TLSConfig enables TLS when set.
	TLSConfig *tls.Config

	ConnectTimeout    time.Duration
	SendBufferSize    int
	MessageBufferSize int

	// Compression enables LZ4 for outbound frames that benefit from it.
	Compression bool

	Logger zerolog.Logger
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    DefaultConnectTimeout,
		SendBufferSize:    DefaultSendBufferSize,
		MessageBufferSize: DefaultMessageBufferSize,
		Compression:       true,
		Logger:            zerolog.Nop(),
	}
}

// Option is a functional option for configuring the transport.
type Option func(*Config)

// WithAddress sets the router address.
func WithAddress(addr string) Option {
	return func(c *Config) { c.Address = addr }
}

// WithTLS enables TLS with the given configuration.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Config) { c.TLSConfig = cfg }
}

// WithConnectTimeout sets the dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithSendBufferSize sets the outbound queue length, which is also the
// capacity reported to the client.
func WithSendBufferSize(n int) Option {
	return func(c *Config) { c.SendBufferSize = n }
}

// WithMessageBufferSize sets the inbound stream buffer.
func WithMessageBufferSize(n int) Option {
	return func(c *Config) { c.MessageBufferSize = n }
}

// WithCompression toggles outbound compression.
func WithCompression(enabled bool) Option {
	return func(c *Config) { c.Compression = enabled }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
