package sync

import "time"

// Config controls connection and delivery behavior. Zero values fall back
// to the env defaults below.
type Config struct {
	URL                   string        `env:"ASTRALINKS_SYNC_URL" envDefault:"ws://localhost:8080/sync"`
	InitialReconnectDelay time.Duration `env:"ASTRALINKS_SYNC_RECONNECT_INITIAL" envDefault:"1s"`
	MaxReconnectDelay     time.Duration `env:"ASTRALINKS_SYNC_RECONNECT_MAX" envDefault:"1m"`
	MaxReconnectAttempts  int           `env:"ASTRALINKS_SYNC_RECONNECT_ATTEMPTS" envDefault:"10"`
	CoalesceWindow        time.Duration `env:"ASTRALINKS_SYNC_COALESCE_WINDOW" envDefault:"50ms"`
	RequestTimeout        time.Duration `env:"ASTRALINKS_SYNC_REQUEST_TIMEOUT" envDefault:"10s"`
	HandshakeTimeout      time.Duration `env:"ASTRALINKS_SYNC_HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

func (c Config) withDefaults() Config {
	if c.InitialReconnectDelay <= 0 {
		c.InitialReconnectDelay = time.Second
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = time.Minute
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.CoalesceWindow <= 0 {
		c.CoalesceWindow = DefaultCoalesceWindow
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}
