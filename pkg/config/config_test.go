package config

import (
	"net"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	cfg.JWT.SecretKey = "test-secret"
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, DriverMemory, cfg.Cache.Driver)
	assert.False(t, cfg.Identity.DemoMode)
	assert.False(t, cfg.Booking.ReopenSlotOnCancel)
	assert.Equal(t, "General consultation", cfg.Booking.DefaultReason)
	assert.Equal(t, 5, cfg.Booking.RecentLimit)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, Validate(cfg))
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("PORT", "8099")
	t.Setenv("APP_ENV", "production")
	t.Setenv("IDENTITY_DEMO_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, 8099, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Identity.DemoMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing jwt secret", func(c *Config) { c.JWT.SecretKey = "" }, "JWT secret key is required"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"postgres without password", func(c *Config) { c.Storage.Driver = DriverPostgres }, "database password is required"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "mongo" }, "unknown storage driver"},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "unknown cache driver"},
		{"unknown id strategy", func(c *Config) { c.Booking.IDStrategy = "timestamp" }, "unknown id strategy"},
		{"bad trusted proxy", func(c *Config) { c.RateLimit.TrustedProxies = []string{"10.0.0.0/33"} }, "invalid trusted proxy range"},
		{"bad trusted address", func(c *Config) { c.RateLimit.TrustedProxies = []string{"proxy.local"} }, "invalid trusted proxy address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrustedNetworks(t *testing.T) {
	cfg := RateLimitConfig{TrustedProxies: []string{"10.0.0.0/8", " 192.0.2.1 ", "", "::1"}}

	nets, err := cfg.TrustedNetworks()
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.True(t, nets[0].Contains(net.ParseIP("10.20.30.40")))
	assert.True(t, nets[1].Contains(net.ParseIP("192.0.2.1")))
	assert.False(t, nets[1].Contains(net.ParseIP("192.0.2.2")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))
}

func TestLoad_TrustedProxiesFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.RateLimit.TrustedProxies)
}

func TestValidate_PostgresWithPassword(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Driver = DriverPostgres
	cfg.Database.Password = "secret"

	assert.NoError(t, Validate(cfg))
}
