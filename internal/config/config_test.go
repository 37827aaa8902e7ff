package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// validConfig returns a config that passes Validate; tests mutate one field.
func validConfig() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Security: SecurityConfig{
			RateLimiting: RateLimitingConfig{Enabled: true, Backend: RateLimitBackendMemory, RequestsPerMinute: 60, Burst: 10},
		},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{Metrics: MetricsConfig{Enabled: true, PrometheusPort: 9090}},
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8000}, "0.0.0.0:8000"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8000}, ":8000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid logging level"},
		{"unknown backend", func(c *Config) { c.Security.RateLimiting.Backend = "memcached" }, "invalid rate limiting backend"},
		{"unknown backend ignored when disabled", func(c *Config) {
			c.Security.RateLimiting.Enabled = false
			c.Security.RateLimiting.Backend = "memcached"
		}, ""},
		{"redis backend without address", func(c *Config) {
			c.Security.RateLimiting.Backend = RateLimitBackendRedis
		}, "redis.address is required"},
		{"redis backend with address", func(c *Config) {
			c.Security.RateLimiting.Backend = RateLimitBackendRedis
			c.Redis.Address = "localhost:6379"
		}, ""},
		{"zero rpm", func(c *Config) { c.Security.RateLimiting.RequestsPerMinute = 0 }, "requests_per_minute"},
		{"zero burst", func(c *Config) { c.Security.RateLimiting.Burst = 0 }, "burst"},
		{"tls without cert", func(c *Config) {
			c.Security.TLS = TLSConfig{Enabled: true, KeyFile: "key.pem"}
		}, "cert_file"},
		{"tls without key", func(c *Config) {
			c.Security.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"}
		}, "key_file"},
		{"bad metrics port", func(c *Config) { c.Telemetry.Metrics.PrometheusPort = 0 }, "invalid metrics port"},
		{"metrics port ignored when disabled", func(c *Config) {
			c.Telemetry.Metrics = MetricsConfig{Enabled: false}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUsesRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesRedis())

	cfg.Security.RateLimiting.Backend = RateLimitBackendRedis
	assert.True(t, cfg.UsesRedis())

	cfg.Security.RateLimiting.Enabled = false
	assert.False(t, cfg.UsesRedis())
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "logging:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, RateLimitBackendMemory, cfg.Security.RateLimiting.Backend)
	assert.True(t, cfg.Security.RateLimiting.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Security.CORS.AllowedOrigins)
	assert.Equal(t, 9090, cfg.Telemetry.Metrics.PrometheusPort)
	assert.Empty(t, cfg.Registry.SeedFile)
	assert.Empty(t, cfg.Static.Dir)
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
  read_timeout: 5s
registry:
  seed_file: "/etc/activity-signup/activities.yaml"
static:
  dir: "./web/static"
security:
  rate_limiting:
    backend: redis
    requests_per_minute: 30
    burst: 5
redis:
  address: "redis:6379"
  db: 2
logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeTempConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "testhost", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/etc/activity-signup/activities.yaml", cfg.Registry.SeedFile)
	assert.Equal(t, "./web/static", cfg.Static.Dir)
	assert.Equal(t, RateLimitBackendRedis, cfg.Security.RateLimiting.Backend)
	assert.Equal(t, 30, cfg.Security.RateLimiting.RequestsPerMinute)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SIGNUP_SERVER_PORT", "7777")
	t.Setenv("SIGNUP_LOGGING_LEVEL", "warn")
	t.Setenv("SIGNUP_REGISTRY_SEED_FILE", "/tmp/seed.yaml")

	cfg, err := Load(writeTempConfig(t, "server:\n  port: 9999\n"))
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/seed.yaml", cfg.Registry.SeedFile)
}

func TestLoad_RedisPasswordExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_SECRET", "s3cret")

	cfg, err := Load(writeTempConfig(t, "redis:\n  password: \"${TEST_REDIS_SECRET}\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTempConfig(t, "server: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeTempConfig(t, "logging:\n  level: chatty\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid configuration"), "got %v", err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
