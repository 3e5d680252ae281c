package main

import (
	"context"
	"os"

	"github.com/fct/fct/backend/go-services/internal/app"
	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/house/handler"
	"github.com/fct/fct/backend/go-services/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Stripped house-only service: house routes, no docs, probes or auth.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	port := os.Getenv("HOUSE_SERVICE_PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	backend := app.OpenBackend(context.Background(), cfg.MongoDB, app.Retry{Attempts: 1})
	defer backend.Close(context.Background())

	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterHouseRoutes(r.Group(cfg.App.APIPrefix+"/v2"), house.NewService(backend.Houses), handler.Options{
		Paging: handler.Paging{Page: cfg.Pagination.Page, Size: cfg.Pagination.PageSize, MaxSize: cfg.Pagination.MaxPageSize},
	})

	logger.Infof("house service listening on :%s (storage=%s)", port, backend.Name)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
