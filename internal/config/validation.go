package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/logger"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/router"
	"github.com/LeJamon/goLoRaRouter/internal/storage"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if strings.TrimSpace(config.Keypair) == "" {
		return fmt.Errorf("keypair path is required")
	}
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := packet.ParseRegion(config.Region); err != nil {
		return fmt.Errorf("invalid region: %w", err)
	}

	if err := config.Router.Validate(); err != nil {
		return fmt.Errorf("router config validation failed: %w", err)
	}
	if err := config.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway config validation failed: %w", err)
	}
	if err := config.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config validation failed: %w", err)
	}
	if err := config.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config validation failed: %w", err)
	}
	if err := config.Ingress.Validate(); err != nil {
		return fmt.Errorf("ingress config validation failed: %w", err)
	}
	if err := validateListen(config.Metrics.Listen); err != nil {
		return fmt.Errorf("metrics config validation failed: %w", err)
	}

	return nil
}

// Validate checks the router section
func (r *RouterConfig) Validate() error {
	if r.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if _, _, err := net.SplitHostPort(r.URI); err != nil {
		return fmt.Errorf("uri must be host:port: %w", err)
	}
	if r.PublicKey == "" {
		return fmt.Errorf("public_key is required")
	}
	if _, err := keys.ParsePublicKeyHex(r.PublicKey); err != nil {
		return fmt.Errorf("invalid public_key: %w", err)
	}
	if _, err := router.ParseUplinkPolicy(r.UplinkPolicy); err != nil {
		return err
	}
	if r.MaxQueue < 0 {
		return fmt.Errorf("max_queue must not be negative")
	}
	return nil
}

// Validate checks the gateway section
func (g *GatewayConfig) Validate() error {
	if g.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Validate checks the transport section
func (t *TransportConfig) Validate() error {
	if t.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive")
	}
	if t.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	if t.MessageBuffer <= 0 {
		return fmt.Errorf("message_buffer must be positive")
	}
	if t.InsecureSkipVerify && !t.TLS {
		return fmt.Errorf("insecure_skip_verify requires tls")
	}
	return nil
}

// Validate checks the cache section
func (c *CacheConfig) Validate() error {
	if !storage.IsValidBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q (valid: %s)", c.Backend, strings.Join(storage.Backends, ", "))
	}
	if c.Backend != storage.BackendMemory && c.Path == "" {
		return fmt.Errorf("path is required for backend %s", c.Backend)
	}
	if c.LRUSize <= 0 {
		return fmt.Errorf("lru_size must be positive")
	}
	return nil
}

// Validate checks the ingress section
func (i *IngressConfig) Validate() error {
	if err := validateListen(i.Listen); err != nil {
		return err
	}
	if i.UplinkBuffer <= 0 || i.DownlinkBuffer <= 0 {
		return fmt.Errorf("buffers must be positive")
	}
	return nil
}

func validateListen(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}
