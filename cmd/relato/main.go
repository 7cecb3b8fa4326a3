package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/relato/relato/api"
	"github.com/relato/relato/audit"
	"github.com/relato/relato/config"
	"github.com/relato/relato/engine"
	"github.com/relato/relato/health"
	"github.com/relato/relato/logger"
	"github.com/relato/relato/namespace"
	"github.com/relato/relato/persistence"
	"github.com/relato/relato/tuple"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting Relato Authorization Service",
		zap.Int("port", cfg.Port),
		zap.String("db_type", cfg.DBType),
	)

	// Namespace schemas are optional; resolution works without them.
	registry := namespace.NewRegistry()
	if cfg.NamespaceDir != "" {
		registry, err = namespace.LoadDir(cfg.NamespaceDir)
		if err != nil {
			logger.Log.Fatal("failed to load namespace config", zap.Error(err))
		}
		logger.Log.Info("loaded namespaces", zap.Strings("names", registry.Names()))
	}

	healthManager := health.NewManager("1.0.0")

	// Tuple store: in-memory for demos, gorm-backed otherwise.
	var store tuple.Store
	var auditStore audit.Store
	if cfg.DBType == "memory" {
		store = tuple.NewMemoryStore()
		auditStore = audit.NewMemoryStore(cfg.AuditRetention)
	} else {
		db, err := persistence.Open(cfg.DBType, cfg.DSN, nil)
		if err != nil {
			logger.Log.Fatal("failed to open database", zap.Error(err))
		}
		tupleRepo := persistence.NewTupleRepository(db)
		auditRepo := persistence.NewAuditRepository(db)
		if !cfg.SkipAutoMigrate {
			if err := tupleRepo.AutoMigrate(); err != nil {
				logger.Log.Fatal("failed to migrate relation tuples", zap.Error(err))
			}
			if err := auditRepo.AutoMigrate(); err != nil {
				logger.Log.Fatal("failed to migrate audit events", zap.Error(err))
			}
		}
		store = tupleRepo
		auditStore = auditRepo

		sqlDB, err := db.DB()
		if err == nil {
			healthManager.Register(health.NewPingChecker("database", sqlDB.PingContext))
		}
	}

	resolver := engine.NewResolver(store, registry)
	checker := engine.NewChecker(resolver, engine.WithMaxDepth(cfg.MaxDepth))
	expander := engine.NewExpander(resolver)

	// Decorate the checker: audited always, cached when a TTL is set.
	var checkEngine engine.CheckEngine = engine.NewAuditedChecker(checker, auditStore)
	var cached *engine.CachedChecker
	if cfg.CacheTTL > 0 {
		var cache engine.DecisionCache = engine.NewMemoryDecisionCache()
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			cache = persistence.NewRedisDecisionCache(client, "")
			healthManager.Register(health.NewPingChecker("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
		}
		cached = engine.NewCachedChecker(checkEngine, cache, cfg.CacheTTL)
		checkEngine = cached
	}

	h := api.NewHandler(store, registry, checkEngine, expander)
	h.SetAuditStore(auditStore)
	if cached != nil {
		h.SetWriteHook(func(ctx context.Context) {
			if err := cached.Invalidate(ctx); err != nil {
				logger.Log.Warn("failed to invalidate decision cache", zap.Error(err))
			}
		})
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	g := e.Group("")
	h.RegisterRoutes(g)

	e.GET("/health/alive", echo.WrapHandler(healthManager.LiveHandler()))
	e.GET("/health/ready", echo.WrapHandler(healthManager.ReadyHandler()))
	e.GET("/health", echo.WrapHandler(healthManager.FullHandler()))

	logger.Log.Info("Server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatal("server stopped", zap.Error(err))
	}
}
