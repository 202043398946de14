// Copyright 2025 Ayush Gupta
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Ayushhgupta39/seabuddy/internal/config"
	"github.com/Ayushhgupta39/seabuddy/internal/migrations"
	"github.com/Ayushhgupta39/seabuddy/internal/server"
	"github.com/Ayushhgupta39/seabuddy/seasync"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()

	if err := runMigrations(ctx, cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db pool: %w", err)
	}
	defer pool.Close()

	store := seasync.NewPgStore(pool, logger)
	service := seasync.NewSyncService(store, &seasync.ServiceConfig{
		AppName:         "seabuddy",
		MaxBatchChanges: cfg.MaxBatchChanges,
	}, logger)
	jwtAuth := seasync.NewJWTAuth(cfg.SecretKey)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(service, jwtAuth, logger, cfg.MaxBodyBytes),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sync server listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// runMigrations applies the embedded DDL through goose using a separate
// database/sql handle; the pgx pool stays on the native protocol.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
