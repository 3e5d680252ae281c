package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "/api", cfg.App.APIPrefix)
	require.Equal(t, "/docs", cfg.App.DocsURL)
	require.Equal(t, "/openapi.json", cfg.App.OpenAPIURL)
	require.Equal(t, []string{"*"}, cfg.App.AllowedHosts)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, "test-fct", cfg.MongoDB.Database)
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, 20, cfg.Pagination.PageSize)
	require.Equal(t, 100, cfg.Pagination.MaxPageSize)
	require.Empty(t, cfg.Redis.Addr())
	require.Empty(t, cfg.Keycloak.Issuer())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("ALLOWED_HOSTS", "a.example.com, b.example.com")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("KEYCLOAK_URL", "https://kc.example.com/")
	t.Setenv("KEYCLOAK_REALM", "fct")
	t.Setenv("PAGE_SIZE", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "fct", cfg.MongoDB.Database)
	require.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	require.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.App.AllowedHosts)
	require.Equal(t, "cache:6379", cfg.Redis.Addr())
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 2.5, cfg.RateLimit.RPS)
	require.Equal(t, "https://kc.example.com/realms/fct", cfg.Keycloak.Issuer())
	require.Equal(t, 50, cfg.Pagination.PageSize)
}

func TestLoadConfigExplicitDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "stage")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "stage-fct", cfg.MongoDB.Database)

	t.Setenv("DB_NAME", "custom")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "custom", cfg.MongoDB.Database)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MONGODB_TIMEOUT", "soon")
	t.Setenv("PAGE_SIZE", "many")
	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MONGODB_TIMEOUT")
	require.Contains(t, err.Error(), "PAGE_SIZE")
}

func TestLoadConfigAuthRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("SECRET_KEY", "")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("SECRET_KEY", "s3cret")
	_, err = LoadConfig()
	require.NoError(t, err)
}

func TestEnvFile(t *testing.T) {
	require.Equal(t, ".env", EnvFile("production"))
	require.Equal(t, ".env.dev", EnvFile("dev"))
	require.Equal(t, ".env.dev", EnvFile(""))
}
