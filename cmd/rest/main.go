package main

import (
	"context"
	"log"
	"time"

	"ai-gateway-be/internal/bootstrap"
	"ai-gateway-be/internal/config"
	"ai-gateway-be/internal/server"
	"ai-gateway-be/internal/tracer"
	"ai-gateway-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// Periodic durable-tier sweep so expired cache rows do not pile up.
	go func() {
		ticker := time.NewTicker(cfg.Cache.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			purged, err := container.TieredCache.SweepExpired(ctx)
			cancel()
			if err != nil {
				container.Logger.Warn("Main", "cache sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if purged > 0 {
				container.Logger.Info("Main", "cache sweep purged expired entries", map[string]interface{}{
					"purged": purged,
				})
			}
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
