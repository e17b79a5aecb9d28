package stream

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	cfg := DefaultConfig()
	suite.NoError(cfg.Validate())
	suite.Equal(DefaultEndpoint, cfg.Endpoint)
	suite.Equal(DefaultReconnectDelay, cfg.ReconnectDelay)
}

func (suite *ConfigTestSuite) TestValidateRejectsMissingEndpoint() {
	cfg := Config{}
	err := cfg.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateRejectsBadEndpoint() {
	cfg := DefaultConfig()
	cfg.Endpoint = "not a url"
	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestWithDefaultsFillsZeroFields() {
	cfg := Config{Endpoint: "wss://example.test/ws"}
	filled := cfg.withDefaults()

	suite.Equal("wss://example.test/ws", filled.Endpoint)
	suite.Equal(DefaultReconnectDelay, filled.ReconnectDelay)
	suite.Equal(DefaultHandshakeTimeout, filled.HandshakeTimeout)
	suite.Equal(DefaultWriteTimeout, filled.WriteTimeout)
	suite.Equal(DefaultPongWait, filled.PongWait)
	suite.Equal(int64(DefaultReadLimit), filled.ReadLimit)
}

func (suite *ConfigTestSuite) TestWithDefaultsKeepsExplicitValues() {
	cfg := Config{
		Endpoint:       "wss://example.test/ws",
		ReconnectDelay: time.Second,
	}
	filled := cfg.withDefaults()

	suite.Equal(time.Second, filled.ReconnectDelay)
}

func (suite *ConfigTestSuite) TestYAMLRoundTrip() {
	raw := `
endpoint: wss://example.test/ws
reconnect_delay: 2s
write_timeout: 1s
`

	var cfg Config

	suite.NoError(yaml.Unmarshal([]byte(raw), &cfg))
	suite.Equal("wss://example.test/ws", cfg.Endpoint)
	suite.Equal(2*time.Second, cfg.ReconnectDelay)
	suite.Equal(time.Second, cfg.WriteTimeout)
}

func (suite *ConfigTestSuite) TestYAMLRejectsBadDuration() {
	var cfg Config

	err := yaml.Unmarshal([]byte("endpoint: wss://example.test/ws\nreconnect_delay: soon\n"), &cfg)
	suite.Error(err)
}
