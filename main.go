package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/exchange/binance"
	"tradeflow/executor"
	"tradeflow/logger"
	"tradeflow/server"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Tradeflow.Name,
		"version":     cfg.Tradeflow.Version,
		"environment": config.AppEnvironment(),
		"testnet":     cfg.Exchange.Testnet,
	}).Info("starting tradeflow")

	if cfg.Metrics.CloudWatchEnabled {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	gateway := exchange.WithMetrics(binance.NewFutures(cfg))
	exec := executor.New(gateway, cfg)

	srv := server.New(cfg, exec)
	httpSrv := srv.HTTPServer()

	go func() {
		log.WithComponent("main").WithFields(logger.Fields{"addr": httpSrv.Addr}).
			Info("webhook server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("webhook server failed")
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	// In-flight attempts get the shutdown window to finish placing or
	// compensating their orders before the listener is torn down.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown timeout exceeded")
	} else {
		log.Info("graceful shutdown completed")
	}

	log.Info("tradeflow stopped")
}
