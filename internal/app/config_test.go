package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		Store:       StorePostgres,
		DatabaseURL: "postgres://localhost/storefront",
		ShippingFee: 20000,
		RateLimit:   RateLimitConfig{Max: 10, Window: time.Minute},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults(env(map[string]string{
		"DATABASE_URL":   "postgres://db/shop",
		"PORT":           "9000",
		"GEMINI_API_KEY": "key",
	}))
	assert.Equal(t, "postgres://db/shop", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "key", cfg.Upsell.APIKey)

	// Explicit settings win.
	cfg = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit"}
	cfg.Upsell.APIKey = "mine"
	cfg.applyPlatformDefaults(env(map[string]string{
		"DATABASE_URL":   "postgres://db/shop",
		"PORT":           "9000",
		"GEMINI_API_KEY": "key",
	}))
	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "mine", cfg.Upsell.APIKey)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory without database", mutate: func(c *Config) {
			c.Store = StoreMemory
			c.DatabaseURL = ""
		}},
		{name: "postgres without database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "redis" }, wantErr: `unknown store "redis"`},
		{name: "negative shipping", mutate: func(c *Config) { c.ShippingFee = -1 }, wantErr: "shipping fee"},
		{name: "zero rate window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
