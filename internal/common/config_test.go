package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:   DatabaseConfig{DSN: "postgres://localhost/catalog"},
		Server:     ServerConfig{GRPCAddr: ":8080", HTTPAddr: ":8081"},
		LLM:        LLMConfig{APIKey: "sk-test"},
		Extraction: ExtractionConfig{GroupSize: 4},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"missing grpc addr", func(c *Config) { c.Server.GRPCAddr = "" }},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }},
		{"zero group size", func(c *Config) { c.Extraction.GroupSize = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.FastModel)
	assert.Equal(t, "gpt-4o", cfg.LLM.VisionModel)
	assert.Equal(t, 4, cfg.Extraction.GroupSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Extraction.GroupDelay)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("GRPC_ADDR", ":9999")
	t.Setenv("EXTRACT_GROUP_SIZE", "8")
	t.Setenv("OPENAI_TIMEOUT", "90s")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")

	cfg := LoadConfig()

	assert.Equal(t, ":9999", cfg.Server.GRPCAddr)
	assert.Equal(t, 8, cfg.Extraction.GroupSize)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, float64(cfg.LLM.Temperature), 0.001)
}
