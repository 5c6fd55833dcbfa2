package fgfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 12000, cfg.ReadPort)
	assert.Equal(t, 5401, cfg.TelnetPort)
	assert.Equal(t, "vasfmc", cfg.Protocol)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Commands.NavCount)
	assert.Len(t, cfg.Commands.Nav, 2)
	assert.Equal(t, 1, cfg.Commands.ADFCount)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown transport", func(c *Config) { c.Transport = "serial" }},
		{"bad read port", func(c *Config) { c.ReadPort = 70000 }},
		{"file without path", func(c *Config) { c.Transport = TransportFile }},
		{"bad telnet port", func(c *Config) { c.TelnetPort = -1 }},
		{"no retry", func(c *Config) { c.TelnetRetry = 0 }},
		{"no protocol", func(c *Config) { c.Protocol = "" }},
		{"no timeout", func(c *Config) { c.Timeout = 0 }},
		{"no command word", func(c *Config) { c.Commands.Word = "" }},
		{"bad constraint", func(c *Config) { c.MinVersion = "banana" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.TelnetPort = 0
	cfg.TelnetRetry = 0
	assert.NoError(t, cfg.Validate(), "retry is irrelevant without telnet")
}
