package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/DoyleJ11/banpick-backend/internal/catalog"
	"github.com/DoyleJ11/banpick-backend/internal/clock"
	"github.com/DoyleJ11/banpick-backend/internal/config"
	"github.com/DoyleJ11/banpick-backend/internal/httpapi"
	"github.com/DoyleJ11/banpick-backend/internal/hub"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
	"github.com/DoyleJ11/banpick-backend/internal/logging"
	"github.com/DoyleJ11/banpick-backend/internal/migrations"
	"github.com/DoyleJ11/banpick-backend/internal/store"
	"github.com/DoyleJ11/banpick-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool *pgxpool.Pool
		db   *gorm.DB
	)
	defer func() {
		err = multierr.Append(err, closeStores(pool, db))
	}()

	if cfg.DatabaseURL != "" {
		pool, err = openPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		if db, err = store.Open(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	cat, err := catalog.Load(ctx, catalogSource(cfg, pool))
	if err != nil {
		return err
	}
	if err := cfg.CheckCatalog(cat.Len()); err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.String("source", cfg.CatalogSource), zap.Int("items", cat.Len()))

	var recorder lobby.Recorder = lobby.NopRecorder{}
	var directory identity.Directory = identity.StaticDirectory{}
	if db != nil {
		if recorder, err = store.NewGormRecorder(db, logger); err != nil {
			return err
		}
		directory = identity.NewPostgresDirectory(pool)
	}

	clk := clock.NewSystem()
	auth := identity.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	h := hub.NewHub(ctx, lobby.Config{
		Catalog:  cat,
		Recorder: recorder,
		Clock:    clk,
		Log:      logger,
	})
	gateway := ws.NewGateway(ws.Config{
		Rooms:          h,
		Auth:           auth,
		Clock:          clk,
		Log:            logger,
		OriginPatterns: cfg.AllowedOrigins,
	})
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:            h,
		Gateway:        gateway,
		Auth:           auth,
		Directory:      directory,
		Defaults:       cfg.Rules(),
		AllowedOrigins: cfg.AllowedOrigins,
		Clock:          clk,
		Log:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Shutdown()
		return err
	})
	return g.Wait()
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(pingCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func catalogSource(cfg config.Config, pool *pgxpool.Pool) catalog.Source {
	switch cfg.CatalogSource {
	case config.CatalogFile:
		return catalog.FileSource{Path: cfg.CatalogPath}
	case config.CatalogPostgres:
		return catalog.NewPostgresSource(pool)
	default:
		return catalog.Builtin{}
	}
}

func closeStores(pool *pgxpool.Pool, db *gorm.DB) error {
	var err error
	if db != nil {
		if sqlDB, dbErr := db.DB(); dbErr != nil {
			err = multierr.Append(err, dbErr)
		} else {
			err = multierr.Append(err, sqlDB.Close())
		}
	}
	if pool != nil {
		pool.Close()
	}
	return err
}
