// cmd/circulationd/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/config"
	"libris/internal/inventory"
	"libris/internal/loan"
	"libris/internal/logging"
	"libris/internal/patron"
	"libris/internal/reports"
	"libris/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}

	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		return
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx, "libris-circulationd", cfg.Telemetry.Endpoint)
		if err != nil {
			log.Fatal("failed to set up telemetry", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to reach database", "error", err)
	}

	titles := catalog.NewPostgresStore(db)
	patrons := patron.NewPostgresStore(db)
	loans := loan.NewPostgresStore(db)
	ledger := inventory.NewPostgresLedger(db)

	engine := circulation.NewService(loans, ledger, titles, patrons,
		circulation.WithLockTimeout(cfg.Engine.LockTimeout),
		circulation.WithLogger(log),
	)
	aggregator := reports.NewAggregator(loans)
	registrar := patron.NewService(patrons)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Mount("/circulation", circulation.NewHandler(engine, aggregator).Routes())
	router.Mount("/catalog", catalog.NewHandler(titles).Routes())
	router.Mount("/members", patron.NewHandler(registrar, patrons).Routes())

	if cfg.Engine.SweepInterval > 0 {
		go runSweep(ctx, engine, cfg.Engine.SweepInterval, log)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting circulation service", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("circulation service stopped")
}

// runSweep periodically materializes overdue transitions. The sweep is an
// optimization: overdue status is also derived lazily on read.
func runSweep(ctx context.Context, engine circulation.Service, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := engine.SweepOverdue(ctx)
			if err != nil {
				log.Warn("overdue sweep failed", "error", err)
				continue
			}
			if changed > 0 {
				log.Info("overdue sweep complete", "loans_transitioned", changed)
			}
		}
	}
}
