package stream

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults for the streaming client. The reconnect delay is a flat 5s; it is
// an independent knob from any consumer-side debounce delay.
const (
	DefaultEndpoint         = "wss://stream.binance.com:9443/ws"
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPongWait         = 60 * time.Second
	DefaultReadLimit        = 1 << 20
)

// Config holds the streaming client configuration.
type Config struct {
	// Endpoint is the push-feed URL. The public kline feed requires no
	// authentication.
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// ReconnectDelay is the backoff between reconnect attempts when the
	// default backoff policy is used.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" validate:"min=0"`
	// HandshakeTimeout bounds the websocket dial, including background
	// reconnect attempts that have no caller-supplied context.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"min=0"`
	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=0"`
	// PongWait is how long the read side waits between server keep-alives
	// before treating the connection as dead.
	PongWait time.Duration `yaml:"pong_wait" validate:"min=0"`
	// ReadLimit caps the size of a single inbound frame in bytes.
	ReadLimit int64 `yaml:"read_limit" validate:"min=0"`
}

// DefaultConfig returns a config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		ReconnectDelay:   DefaultReconnectDelay,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		PongWait:         DefaultPongWait,
		ReadLimit:        DefaultReadLimit,
	}
}

// Validate validates the config.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid stream config", err)
	}

	return nil
}

// UnmarshalYAML decodes the config from yaml, accepting human-readable
// duration strings ("5s", "500ms") for the timing knobs.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Endpoint         string `yaml:"endpoint"`
		ReconnectDelay   string `yaml:"reconnect_delay"`
		HandshakeTimeout string `yaml:"handshake_timeout"`
		WriteTimeout     string `yaml:"write_timeout"`
		PongWait         string `yaml:"pong_wait"`
		ReadLimit        int64  `yaml:"read_limit"`
	}

	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode stream config", err)
	}

	c.Endpoint = raw.Endpoint
	c.ReadLimit = raw.ReadLimit

	for _, field := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"reconnect_delay", raw.ReconnectDelay, &c.ReconnectDelay},
		{"handshake_timeout", raw.HandshakeTimeout, &c.HandshakeTimeout},
		{"write_timeout", raw.WriteTimeout, &c.WriteTimeout},
		{"pong_wait", raw.PongWait, &c.PongWait},
	} {
		if field.raw == "" {
			continue
		}

		parsed, err := time.ParseDuration(field.raw)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"invalid duration for %s", field.name)
		}

		*field.dst = parsed
	}

	return nil
}

// withDefaults fills zero-valued fields with package defaults.
func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}

	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}

	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}

	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}

	return c
}
