// Command backfill copies every user, post, comment and like from the
// relational store into the graph.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"socialblog/backend/internal/app"
	"socialblog/backend/internal/backfill"
	"socialblog/backend/pkg/config"
	"socialblog/backend/pkg/logger"
)

func main() {
	clearGraph := flag.Bool("clear", false, "delete every graph node before copying")
	concurrency := flag.Int("concurrency", backfill.DefaultConcurrency, "parallel graph writes per stage")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close(context.Background())

	log.Info("Starting backfill", zap.Bool("clear", *clearGraph), zap.Int("concurrency", *concurrency))
	report, err := application.Backfill().Run(ctx, backfill.Options{Clear: *clearGraph, Concurrency: *concurrency})
	if err != nil {
		log.Error("Backfill aborted", zap.Error(err), zap.Any("report", report))
		application.Close(context.Background())
		logger.Sync()
		os.Exit(1)
	}
	if report.Failed > 0 {
		log.Warn("Backfill finished with failures", zap.Int64("failed", report.Failed))
	}
}
