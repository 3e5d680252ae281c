package app

import (
	"context"
	"time"

	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/internal/database"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/fct/fct/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Backend is the storage the process serves from.
type Backend struct {
	Houses store.Store
	Client *mongo.Client
	Name   string
}

// Checks returns the readiness checks of the backend.
func (b Backend) Checks(timeout time.Duration) []Check {
	if b.Client == nil {
		return nil
	}
	return []Check{{Name: "mongo", Fn: func(ctx context.Context) error {
		return database.Ping(ctx, b.Client, timeout)
	}}}
}

func (b Backend) Close(ctx context.Context) {
	if b.Client != nil {
		_ = b.Client.Disconnect(ctx)
	}
}

// Retry controls the MongoDB connection attempts.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetry = Retry{Attempts: 5, Backoff: time.Second}

// OpenBackend connects to MongoDB with retry/backoff to tolerate startup races and binds
// the houses collection. When no deployment answers it falls back to the memory store.
func OpenBackend(ctx context.Context, cfg config.MongoDBConfig, retry Retry) Backend {
	uri := database.BuildURI(cfg)
	backoff := retry.Backoff
	var client *mongo.Client
	var errConn error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		client, errConn = database.ConnectMongo(ctx, uri, cfg.Timeout)
		if errConn == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, retry.Attempts, errConn)
		if attempt < retry.Attempts {
			select {
			case <-ctx.Done():
				attempt = retry.Attempts
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if errConn != nil || client == nil {
		logger.Warnf("could not connect to MongoDB after %d attempts; serving from memory", retry.Attempts)
		return memoryBackend()
	}

	col := client.Database(cfg.Database).Collection(house.Collection)
	st, err := store.NewMongoStore(ctx, col, house.Indexes...)
	if err != nil {
		logger.Warnf("could not prepare %s collection: %v; serving from memory", house.Collection, err)
		_ = client.Disconnect(ctx)
		return memoryBackend()
	}
	logger.Infof("connected to MongoDB database %s", cfg.Database)
	return Backend{Houses: st, Client: client, Name: "mongodb"}
}

func memoryBackend() Backend {
	return Backend{Houses: store.NewMemoryStore(house.Collection, house.Indexes...), Name: "memory"}
}
