package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT", "ENVIRONMENT", "GIN_MODE", "TRUSTED_PROXIES",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE", "SQLITE_PATH",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL", "BCRYPT_COST",
	"EXTERNAL_JWT_SECRET", "EXTERNAL_ISSUER", "EXTERNAL_AUDIENCE", "EXTERNAL_LEEWAY",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_IDLE_TTL",
	"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "CACHE_BROWSE_TTL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}
	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}
	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}
	if config.Database.Driver != "postgres" {
		t.Errorf("Expected default DB driver 'postgres', got %s", config.Database.Driver)
	}
	if config.Database.Name != "taskmaker" {
		t.Errorf("Expected default DB name 'taskmaker', got %s", config.Database.Name)
	}
	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}
	if !config.Redis.Enabled {
		t.Error("Expected Redis to be enabled by default")
	}
	if config.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("Expected default token TTL 7 days, got %v", config.Auth.TokenTTL)
	}
	if config.Auth.BCryptCost != 10 {
		t.Errorf("Expected default bcrypt cost 10, got %d", config.Auth.BCryptCost)
	}
	if config.Auth.ExternalAudience != "authenticated" {
		t.Errorf("Expected default external audience 'authenticated', got %s", config.Auth.ExternalAudience)
	}
	if config.Auth.ExternalLeeway != 30*time.Second {
		t.Errorf("Expected default external leeway 30s, got %v", config.Auth.ExternalLeeway)
	}
	if config.ExternalAuthEnabled() {
		t.Error("Expected external auth to be disabled without a secret")
	}
	if len(config.CORS.AllowedOrigins) != 1 || config.CORS.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("Unexpected default CORS origins: %v", config.CORS.AllowedOrigins)
	}
	if config.Cache.BrowseTTL != time.Minute {
		t.Errorf("Expected default browse TTL 1m, got %v", config.Cache.BrowseTTL)
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	clearEnv(t)
	setEnvVars(t, map[string]string{
		"PORT":                 "9090",
		"DB_DRIVER":            "SQLite",
		"SQLITE_PATH":          "/tmp/tasks.db",
		"REDIS_ENABLED":        "false",
		"TOKEN_TTL":            "24h",
		"EXTERNAL_JWT_SECRET":  "idp-secret",
		"EXTERNAL_ISSUER":      "https://idp.example.com/auth/v1",
		"CORS_ALLOWED_ORIGINS": "https://app.example.com, https://admin.example.com ,",
		"RATE_LIMIT_RPM":       "30",
		"LOG_FORMAT":           "json",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Server.Port != "9090" {
		t.Errorf("Expected port '9090', got %s", config.Server.Port)
	}
	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected driver 'sqlite', got %s", config.Database.Driver)
	}
	if config.GetDatabaseDSN() != "/tmp/tasks.db" {
		t.Errorf("Expected sqlite DSN '/tmp/tasks.db', got %s", config.GetDatabaseDSN())
	}
	if config.Redis.Enabled {
		t.Error("Expected Redis to be disabled")
	}
	if config.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Expected token TTL 24h, got %v", config.Auth.TokenTTL)
	}
	if !config.ExternalAuthEnabled() {
		t.Error("Expected external auth to be enabled")
	}
	if len(config.CORS.AllowedOrigins) != 2 || config.CORS.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("Unexpected CORS origins: %v", config.CORS.AllowedOrigins)
	}
	if config.RateLimit.RequestsPerMin != 30 {
		t.Errorf("Expected 30 rpm, got %d", config.RateLimit.RequestsPerMin)
	}
	if config.Log.Format != "json" {
		t.Errorf("Expected json log format, got %s", config.Log.Format)
	}
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	clearEnv(t)
	setEnvVars(t, map[string]string{"DB_DRIVER": "mongodb"})

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestLoadConfig_GinMode(t *testing.T) {
	clearEnv(t)
	setEnvVars(t, map[string]string{"GIN_MODE": "release"})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Server.GinMode != "release" {
		t.Errorf("Expected gin mode release, got %s", config.Server.GinMode)
	}

	t.Setenv("GIN_MODE", "verbose")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for unknown gin mode")
	}
}

func TestLoadConfig_TrustedProxies(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(config.Server.TrustedProxies) != 0 {
		t.Errorf("Expected no trusted proxies by default, got %v", config.Server.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16")
	config, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(config.Server.TrustedProxies) != 2 || config.Server.TrustedProxies[1] != "192.168.0.0/16" {
		t.Errorf("Unexpected trusted proxies %v", config.Server.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "not-a-proxy")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for invalid trusted proxy")
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr bool
	}{
		{
			name:    "missing db password",
			vars:    map[string]string{"JWT_SECRET": "0123456789abcdef0123456789abcdef"},
			wantErr: true,
		},
		{
			name:    "default jwt secret",
			vars:    map[string]string{"DB_PASSWORD": "pw"},
			wantErr: true,
		},
		{
			name:    "short jwt secret",
			vars:    map[string]string{"DB_PASSWORD": "pw", "JWT_SECRET": "short"},
			wantErr: true,
		},
		{
			name:    "sqlite needs no db password",
			vars:    map[string]string{"DB_DRIVER": "sqlite", "JWT_SECRET": "0123456789abcdef0123456789abcdef"},
			wantErr: false,
		},
		{
			name:    "valid",
			vars:    map[string]string{"DB_PASSWORD": "pw", "JWT_SECRET": "0123456789abcdef0123456789abcdef"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ENVIRONMENT", "production")
			setEnvVars(t, tt.vars)

			_, err := LoadConfig()
			if tt.wantErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "db.example.com",
			Port:     "5433",
			User:     "tasks",
			Password: "secret",
			Name:     "taskmaker",
			SSLMode:  "require",
		},
	}

	expected := "host=db.example.com port=5433 user=tasks password=secret dbname=taskmaker sslmode=require"
	if dsn := config.GetDatabaseDSN(); dsn != expected {
		t.Errorf("Expected DSN %s, got %s", expected, dsn)
	}
}

func TestConfig_Addrs(t *testing.T) {
	config := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Redis:  RedisConfig{Host: "cache", Port: "6380"},
	}

	if addr := config.GetServerAddr(); addr != "0.0.0.0:8080" {
		t.Errorf("Expected server addr 0.0.0.0:8080, got %s", addr)
	}
	if addr := config.GetRedisAddr(); addr != "cache:6380" {
		t.Errorf("Expected redis addr cache:6380, got %s", addr)
	}
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	if v := getEnvAsInt("TEST_INT", 7); v != 7 {
		t.Errorf("Expected fallback 7, got %d", v)
	}
	if v := getEnvAsBool("TEST_BOOL", true); !v {
		t.Error("Expected fallback true")
	}
	if v := getEnvAsDuration("TEST_DURATION", time.Second); v != time.Second {
		t.Errorf("Expected fallback 1s, got %v", v)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=7070\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "warn")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PORT") })

	config, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Port != "7070" {
		t.Errorf("Expected port from env file, got %s", config.Server.Port)
	}
	if config.Log.Level != "warn" {
		t.Errorf("Expected existing variable to win, got %s", config.Log.Level)
	}
}

func BenchmarkLoadConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = LoadConfig()
	}
}
