// Package app wires configuration into the stores and services shared by the
// server and the backfill command.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialblog/backend/internal/analytics"
	"socialblog/backend/internal/api"
	"socialblog/backend/internal/backfill"
	"socialblog/backend/internal/blog"
	"socialblog/backend/internal/graph"
	"socialblog/backend/internal/graphsync"
	"socialblog/backend/internal/social"
	"socialblog/backend/internal/trigger"
	"socialblog/backend/pkg/config"
	"socialblog/backend/pkg/database"
	"socialblog/backend/pkg/logger"
)

type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Graph     graph.Store
	Cache     analytics.Cache
	Sync      *graphsync.Service
	Blog      *blog.Service
	Social    *social.Service
	Analytics *analytics.Engine

	logger *zap.Logger
}

// New opens every backing store and builds the services. A Redis failure
// disables the analytics cache instead of failing startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Named("app")

	db, err := database.Open(cfg.Database())
	if err != nil {
		return nil, err
	}
	if err := blog.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("Relational store ready", zap.String("driver", cfg.DBDriver))

	store, err := graph.Open(ctx, graph.ConnectOptions{
		Backend:  cfg.GraphBackend,
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	log.Info("Graph store ready", zap.String("backend", cfg.GraphBackend))

	var cache analytics.Cache
	if cfg.RedisAddress != "" {
		redisCache, err := analytics.NewRedisCache(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, "socialblog:analytics")
		if err != nil {
			log.Warn("Analytics cache disabled", zap.String("address", cfg.RedisAddress), zap.Error(err))
		} else {
			cache = redisCache
		}
	}

	syncSvc := graphsync.NewService(store)
	return &App{
		Config: cfg,
		DB:     db,
		Graph:  store,
		Cache:  cache,
		Sync:   syncSvc,
		Blog:   blog.NewService(blog.NewRepository(db), trigger.NewSyncer(syncSvc)),
		Social: social.NewService(store, social.Policy{
			AllowSelfFollow: cfg.AllowSelfFollow,
			AllowSelfFriend: cfg.AllowSelfFriend,
		}),
		Analytics: analytics.NewEngine(store, analytics.Options{
			Timeout:  cfg.GraphQueryTimeout,
			Cache:    cache,
			CacheTTL: cfg.AnalyticsCacheTTL,
		}),
		logger: log,
	}, nil
}

// Router builds the HTTP surface over the app's services
func (a *App) Router() *gin.Engine {
	return api.NewRouter(api.NewHandler(a.Blog, a.Social, a.Sync, a.Analytics), a.Config.IsProduction())
}

// Backfill builds a runner that replays the relational store into the graph
func (a *App) Backfill() *backfill.Runner {
	return backfill.NewRunner(a.Blog.Repository(), trigger.NewSyncer(a.Sync), a.Graph)
}

// Close releases the graph driver, cache and database pool
func (a *App) Close(ctx context.Context) {
	if err := a.Graph.Close(ctx); err != nil {
		a.logger.Warn("Failed to close graph store", zap.Error(err))
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("Failed to close analytics cache", zap.Error(err))
		}
	}
	if err := database.Close(a.DB); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
}
