package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resto-pos/api/internal/cache"
	"github.com/resto-pos/api/internal/config"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/handler"
	"github.com/resto-pos/api/internal/jobs"
	"github.com/resto-pos/api/internal/objectstore"
	"github.com/resto-pos/api/internal/router"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("ERROR: migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ERROR: connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ERROR: ping database: %v", err)
	}

	queries := database.New(pool)

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	defer c.Close()

	objects, err := objectstore.NewMinio(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("ERROR: connect to object storage: %v", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatalf("ERROR: ensure attachment bucket: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	orderSvc := service.NewOrderService(pool)
	settlementSvc := service.NewSettlementService(pool, nil)
	purchaseSvc := service.NewPurchaseService(pool)

	publisher := service.NewEinvoicePublisher(queries, nil)
	scheduler, err := jobs.NewScheduler(publisher, cfg.EinvoiceSweepInterval)
	if err != nil {
		log.Fatalf("ERROR: create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := router.New(router.Deps{
		JWTSecret:   cfg.JWTSecret,
		Hub:         hub,
		Auth:        handler.NewAuthHandler(queries, cfg.JWTSecret),
		Orders:      handler.NewOrdersHandler(orderSvc, queries, c, hub),
		Settlements: handler.NewSettlementsHandler(settlementSvc, queries, c, hub),
		Receipts:    handler.NewReceiptsHandler(queries),
		Tables:      handler.NewTablesHandler(queries, c, hub),
		Customers:   handler.NewCustomersHandler(queries),
		Products:    handler.NewProductsHandler(queries),
		Suppliers:   handler.NewSuppliersHandler(queries),
		Purchase:    handler.NewPurchaseHandler(purchaseSvc, queries, objects),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ERROR: server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
