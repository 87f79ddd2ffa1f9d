package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"meteotiles/internal/cache"
	"meteotiles/internal/catalog"
	"meteotiles/internal/config"
	"meteotiles/internal/database"
	"meteotiles/internal/dispatch"
	"meteotiles/internal/fieldcache"
	"meteotiles/internal/metrics"
	"meteotiles/internal/objstore"
	"meteotiles/internal/registry"
	"meteotiles/internal/server"
	"meteotiles/internal/tilecache"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize catalog database
	pool := database.NewPool(cfg.DatabaseURL())
	defer pool.Close()

	// Optional shared tile cache tier; the in-process LRU suffices
	// when it is absent or down.
	var external tilecache.Store
	if cfg.RedisEnabled {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr())
		if err != nil {
			log.Printf("Warning: shared tile cache unavailable: %v", err)
		} else {
			defer redisClient.Close()
			external = tilecache.NewRedisStore(redisClient)
		}
	}

	// Object store
	var store objstore.Store
	switch cfg.ObjectStore {
	case "fs":
		store = objstore.FSStore{Root: cfg.FSRoot}
	default:
		s3Store, err := objstore.NewS3(context.Background(), cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint,
			objstore.RetryPolicy{
				Attempts:    cfg.FetchAttempts,
				PerAttempt:  time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
				TotalBudget: time.Duration(cfg.FetchBudgetSeconds) * time.Second,
			})
		if err != nil {
			log.Fatalf("Failed to initialize object store: %v", err)
		}
		store = s3Store
	}

	// Registries, metrics, caches
	reg := registry.Load(viper.GetViper())
	met := &metrics.Registry{}
	fields := fieldcache.New(
		cfg.FieldCacheMaxEntries,
		cfg.FieldCacheMaxMB*1024*1024,
		cfg.NegativeCacheTTL(),
		int64(cfg.MaxFieldLoads),
		met,
	)
	tiles, err := tilecache.New(cfg.TileCacheEntries, external, met)
	if err != nil {
		log.Fatalf("Failed to initialize tile cache: %v", err)
	}

	disp := dispatch.NewDispatcher(reg, catalog.New(pool), store, fields, tiles, met,
		cfg.MaxRenders, cfg.RenderQueueDepth)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	h := server.New(disp, reg, fields, tiles, met, cfg.RequestTimeout())
	h.Register(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.BackendPort)
		fmt.Printf("Tile server starting on %s\n", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal(err)
		}
	}()

	// Drain in-flight requests before tearing the caches down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
