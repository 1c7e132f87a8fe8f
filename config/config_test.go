package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid_AppliesDefaults(t *testing.T) {
	cfg := ClientConfig{}
	assert.NoError(t, cfg.Valid())
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValid_RejectsOutOfRange(t *testing.T) {
	cfg := ClientConfig{DefaultTimeout: DefaultTimeoutMax * 2}
	assert.Error(t, cfg.Valid())

	cfg = ClientConfig{TransportRetries: TransportRetriesMax + 1}
	assert.Error(t, cfg.Valid())
}

func TestValid_NilReceiver(t *testing.T) {
	var cfg *ClientConfig
	assert.Error(t, cfg.Valid())
}
