package config

import (
	"path/filepath"
	"time"
)

// Config represents the complete lorarouter configuration
type Config struct {
	// Keypair is the path to the client's hex private key file
	Keypair  string `toml:"keypair" mapstructure:"keypair"`
	LogLevel string `toml:"log_level" mapstructure:"log_level"`
	Region   string `toml:"region" mapstructure:"region"`

	Router    RouterConfig    `toml:"router" mapstructure:"router"`
	Gateway   GatewayConfig   `toml:"gateway" mapstructure:"gateway"`
	Transport TransportConfig `toml:"transport" mapstructure:"transport"`
	Cache     CacheConfig     `toml:"cache" mapstructure:"cache"`
	Ingress   IngressConfig   `toml:"ingress" mapstructure:"ingress"`
	Metrics   MetricsConfig   `toml:"metrics" mapstructure:"metrics"`

	configPath string `toml:"-" mapstructure:"-"`
}

// RouterConfig identifies the router this client pays
type RouterConfig struct {
	URI          string `toml:"uri" mapstructure:"uri"`
	PublicKey    string `toml:"public_key" mapstructure:"public_key"`
	OUI          uint32 `toml:"oui" mapstructure:"oui"`
	UplinkPolicy string `toml:"uplink_policy" mapstructure:"uplink_policy"`
	MaxQueue     int    `toml:"max_queue" mapstructure:"max_queue"`
}

// GatewayConfig points at the gateway service used to resolve channels
type GatewayConfig struct {
	URI     string        `toml:"uri" mapstructure:"uri"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// TransportConfig tunes the state channel connection
type TransportConfig struct {
	TLS                bool          `toml:"tls" mapstructure:"tls"`
	InsecureSkipVerify bool          `toml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	ConnectTimeout     time.Duration `toml:"connect_timeout" mapstructure:"connect_timeout"`
	SendBuffer         int           `toml:"send_buffer" mapstructure:"send_buffer"`
	MessageBuffer      int           `toml:"message_buffer" mapstructure:"message_buffer"`
	Compression        bool          `toml:"compression" mapstructure:"compression"`
}

// CacheConfig selects where trusted channels are persisted
type CacheConfig struct {
	Backend string `toml:"backend" mapstructure:"backend"`
	Path    string `toml:"path" mapstructure:"path"`
	LRUSize int    `toml:"lru_size" mapstructure:"lru_size"`
}

// IngressConfig configures the packet forwarder websocket endpoint.
// An empty Listen disables it.
type IngressConfig struct {
	Listen         string `toml:"listen" mapstructure:"listen"`
	UplinkBuffer   int    `toml:"uplink_buffer" mapstructure:"uplink_buffer"`
	DownlinkBuffer int    `toml:"downlink_buffer" mapstructure:"downlink_buffer"`
}

// MetricsConfig configures the prometheus endpoint. An empty Listen
// disables it.
type MetricsConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// GetConfigPath returns the path the configuration was loaded from
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// ResolvePath makes a relative path relative to the configuration file's
// directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.configPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.configPath), p)
}

// KeypairPath returns the resolved keypair file path
func (c *Config) KeypairPath() string {
	return c.ResolvePath(c.Keypair)
}

// CachePath returns the resolved cache directory
func (c *Config) CachePath() string {
	return c.ResolvePath(c.Cache.Path)
}
