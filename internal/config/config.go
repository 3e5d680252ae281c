package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	App        AppConfig
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Auth       AuthConfig
	Keycloak   KeycloakConfig
	Pagination PaginationConfig
	Log        LogConfig
}

type AppConfig struct {
	Env          string
	Debug        bool
	Title        string
	Version      string
	APIPrefix    string
	DocsURL      string
	OpenAPIURL   string
	AllowedHosts []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

type MongoDBConfig struct {
	// URI overrides the address assembled from the DB_* settings.
	URI      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is empty when no Redis host is configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	// UseRedis switches to the shared fixed-window limiter.
	UseRedis bool
	Window   time.Duration
}

type AuthConfig struct {
	Required        bool
	SecretKey       string
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

// Issuer is the realm issuer URL, empty when Keycloak is not configured.
func (k KeycloakConfig) Issuer() string {
	if k.URL == "" || k.Realm == "" {
		return ""
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type PaginationConfig struct {
	Page        int
	PageSize    int
	MaxPageSize int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// DatabaseNames maps an environment to its database name.
var DatabaseNames = map[string]string{
	"prod":  "fct",
	"stage": "stage-fct",
	"dev":   "dev-fct",
	"test":  "test-fct",
}

// EnvFile is the env file read for the given APP_ENV.
func EnvFile(env string) string {
	if strings.Contains(strings.ToLower(env), "prod") {
		return ".env"
	}
	return ".env.dev"
}

// LoadConfig loads configuration from environment variables and the env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(EnvFile(os.Getenv("APP_ENV")))

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DEBUG", false)
	v.SetDefault("TITLE", "fct")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("DOCS_URL", "/docs")
	v.SetDefault("OPENAPI_URL", "/openapi.json")
	v.SetDefault("ALLOWED_HOSTS", "*")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "27017")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW", 60)
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24)
	v.SetDefault("REFRESH_TOKEN_EXPIRE_MINUTES", 60*24*7)
	v.SetDefault("PAGE", 1)
	v.SetDefault("PAGE_SIZE", 20)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	env := v.GetString("APP_ENV")
	var errs []string
	num := func(key string) int {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, key)
		}
		return n
	}
	float := func(key string) float64 {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
		if err != nil {
			errs = append(errs, key)
		}
		return f
	}
	flag := func(key string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, key)
		}
		return b
	}

	cfg := &Config{
		App: AppConfig{
			Env:          env,
			Debug:        flag("DEBUG"),
			Title:        v.GetString("TITLE"),
			Version:      v.GetString("VERSION"),
			APIPrefix:    v.GetString("API_PREFIX"),
			DocsURL:      v.GetString("DOCS_URL"),
			OpenAPIURL:   v.GetString("OPENAPI_URL"),
			AllowedHosts: splitList(v.GetString("ALLOWED_HOSTS")),
		},
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			ReadTimeout:  time.Duration(num("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(num("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: databaseName(v.GetString("DB_NAME"), env),
			Timeout:  time.Duration(num("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       num("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  flag("RATE_LIMIT_ENABLED"),
			RPS:      float("RATE_LIMIT_RPS"),
			Burst:    num("RATE_LIMIT_BURST"),
			UseRedis: flag("RATE_LIMIT_USE_REDIS"),
			Window:   time.Duration(num("RATE_LIMIT_WINDOW")) * time.Second,
		},
		Auth: AuthConfig{
			Required:        flag("AUTH_REQUIRED"),
			SecretKey:       v.GetString("SECRET_KEY"),
			Algorithm:       v.GetString("ALGORITHM"),
			AccessTokenTTL:  time.Duration(num("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
			RefreshTokenTTL: time.Duration(num("REFRESH_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		Pagination: PaginationConfig{
			Page:        num("PAGE"),
			PageSize:    num("PAGE_SIZE"),
			MaxPageSize: num("MAX_PAGE_SIZE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: flag("LOG_PRETTY"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: invalid value for %s", strings.Join(errs, ", "))
	}
	if cfg.Pagination.PageSize < 1 || cfg.Pagination.PageSize > cfg.Pagination.MaxPageSize {
		return nil, fmt.Errorf("config: PAGE_SIZE must be between 1 and MAX_PAGE_SIZE (%d)", cfg.Pagination.MaxPageSize)
	}
	if cfg.Auth.Required && cfg.Auth.SecretKey == "" && cfg.Keycloak.Issuer() == "" {
		return nil, fmt.Errorf("config: AUTH_REQUIRED needs SECRET_KEY or a Keycloak realm")
	}
	return cfg, nil
}

// databaseName picks DB_NAME when set, else the name mapped from the environment.
func databaseName(explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	if name, ok := DatabaseNames[strings.ToLower(env)]; ok {
		return name
	}
	return DatabaseNames["dev"]
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
