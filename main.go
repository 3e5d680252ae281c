package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fct/fct/backend/go-services/internal/app"
	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/oidc"
	"github.com/fct/fct/backend/go-services/internal/registry"
	"github.com/fct/fct/backend/go-services/internal/repository"
	"github.com/fct/fct/backend/go-services/internal/tokens"
	"github.com/fct/fct/backend/go-services/pkg/logger"
	"github.com/fct/fct/backend/go-services/pkg/metrics"
	"github.com/fct/fct/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config
	root := &cobra.Command{
		Use:           "fct",
		Short:         "House API over MongoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level)
			logger.SetPretty(cfg.Log.Pretty)
			logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})

	var sub string
	var refresh bool
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := tokens.GenerateAccessToken
			if refresh {
				gen = tokens.GenerateRefreshToken
			}
			tok, exp, err := gen(cfg.Auth, map[string]interface{}{"sub": sub})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", tok, exp.Format(time.RFC3339))
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&sub, "sub", "dev", "subject claim")
	tokenCmd.Flags().BoolVar(&refresh, "refresh", false, "issue a refresh token instead")
	root.AddCommand(tokenCmd)
	return root
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: env=%s keycloak=%v mongo=%s redis=%v auth_required=%v",
		cfg.App.Env, cfg.Keycloak.Issuer() != "", cfg.MongoDB.Database, cfg.Redis.Addr() != "", cfg.Auth.Required)

	backend := app.OpenBackend(ctx, cfg.MongoDB, app.DefaultRetry)
	defer backend.Close(context.Background())
	if _, err := registry.Init(backend.Houses); err != nil {
		return err
	}

	// Connect to Redis early so the rate-limiter can use it when configured
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r, err := app.NewRouter(cfg, app.Deps{
		Houses:   house.NewService(backend.Houses, repository.WithMetrics()),
		Verifier: verifier(ctx, cfg),
		Redis:    rdb,
		Checks:   backend.Checks(cfg.MongoDB.Timeout),
		Storage:  backend.Name,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting %s %s on %s (storage=%s)", cfg.App.Title, cfg.App.Version, srv.Addr, backend.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// verifier prefers the Keycloak realm and falls back to the shared-secret verifier.
func verifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.Keycloak.Issuer() != "" {
		ver, err := oidc.NewKeycloakVerifier(ctx, cfg.Keycloak)
		if err == nil {
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.Auth.SecretKey != "" {
		ver, err := tokens.NewVerifier(cfg.Auth.SecretKey)
		if err == nil {
			return ver
		}
	}
	return nil
}
