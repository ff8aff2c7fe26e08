package config

import "github.com/spf13/viper"

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("keypair", "data/keypair")
	v.SetDefault("log_level", "info")
	v.SetDefault("region", "US915")

	// Router defaults. Empty values are registered so environment
	// overrides are picked up by Unmarshal.
	v.SetDefault("router.uri", "")
	v.SetDefault("router.public_key", "")
	v.SetDefault("router.oui", 0)
	v.SetDefault("router.uplink_policy", "send_and_queue")
	v.SetDefault("router.max_queue", 1000)

	// Gateway defaults
	v.SetDefault("gateway.uri", "")
	v.SetDefault("gateway.timeout", "5s")

	// Transport defaults
	v.SetDefault("transport.tls", false)
	v.SetDefault("transport.insecure_skip_verify", false)
	v.SetDefault("transport.connect_timeout", "10s")
	v.SetDefault("transport.send_buffer", 100)
	v.SetDefault("transport.message_buffer", 100)
	v.SetDefault("transport.compression", true)

	// Cache defaults
	v.SetDefault("cache.backend", "pebble")
	v.SetDefault("cache.path", "data/cache")
	v.SetDefault("cache.lru_size", 64)

	// Ingress defaults
	v.SetDefault("ingress.listen", "")
	v.SetDefault("ingress.uplink_buffer", 256)
	v.SetDefault("ingress.downlink_buffer", 256)

	// Metrics defaults
	v.SetDefault("metrics.listen", "")
}
