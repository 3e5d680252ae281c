// Package app assembles the HTTP surface of the house API.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fct/fct/backend/go-services/handlers"
	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/internal/house"
	househandler "github.com/fct/fct/backend/go-services/internal/house/handler"
	"github.com/fct/fct/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// ErrNoVerifier is returned when authentication is required but no verifier is set.
var ErrNoVerifier = errors.New("app: AUTH_REQUIRED is set but no token verifier is available")

// Check is one readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Deps are the collaborators the router serves.
type Deps struct {
	Houses   *house.Service
	Verifier middleware.Verifier
	Redis    *redis.Client
	Checks   []Check
	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Storage names the active backend in readiness output.
	Storage string
}

var startTime = time.Now()

// NewRouter returns the gin engine with middleware, docs, probes and house routes.
func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if deps.Houses == nil {
		return nil, errors.New("app: house service is required")
	}
	if cfg.Auth.Required && deps.Verifier == nil {
		return nil, ErrNoVerifier
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.CORS(cfg.App.AllowedHosts))

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && deps.Redis != nil {
			r.Use(middleware.RedisRateLimitMiddleware(deps.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "api is working"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(deps))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r, handlers.DocsConfig{
		Title:      cfg.App.Title,
		Version:    cfg.App.Version,
		APIPrefix:  cfg.App.APIPrefix,
		DocsURL:    cfg.App.DocsURL,
		OpenAPIURL: cfg.App.OpenAPIURL,
	})

	var guard []gin.HandlerFunc
	if cfg.Auth.Required {
		guard = append(guard, middleware.AuthMiddleware(deps.Verifier))
	}
	househandler.RegisterHouseRoutes(r.Group(cfg.App.APIPrefix+"/v2"), deps.Houses, househandler.Options{
		Paging: househandler.Paging{
			Page:    cfg.Pagination.Page,
			Size:    cfg.Pagination.PageSize,
			MaxSize: cfg.Pagination.MaxPageSize,
		},
		Guard: guard,
	})
	return r, nil
}

// readiness returns 200 only when every dependency answers.
func readiness(deps Deps) gin.HandlerFunc {
	checks := deps.Checks
	if deps.Redis != nil {
		checks = append(checks[:len(checks):len(checks)], Check{Name: "redis", Fn: func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		status := gin.H{}
		for _, chk := range checks {
			if err := chk.Fn(ctx); err != nil {
				ready = false
				status[chk.Name] = err.Error()
				continue
			}
			status[chk.Name] = "ok"
		}
		body := gin.H{"status": "ready", "storage": deps.Storage, "deps": status, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}
