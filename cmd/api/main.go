package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/server"
	"github.com/Ramsey-B/sage/pkg/startup"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger := newLogger(cfg)
	logger.Infof("Starting %s %s", cfg.AppName, version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingDep := server.NewTracingDependency(cfg, logger)
	databaseDep := server.NewDatabaseDependency(cfg, logger)
	redisDep := server.NewRedisDependency(cfg, logger)
	kafkaDep := server.NewKafkaDependency(cfg, logger)
	graphDep := server.NewGraphDependency(cfg, logger)
	httpServer := server.NewServer(cfg, logger, version, databaseDep, redisDep, kafkaDep, graphDep)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(tracingDep)
	boot.AddDependency(databaseDep)
	boot.AddDependency(redisDep)
	boot.AddDependency(kafkaDep)
	boot.AddDependency(graphDep)
	boot.AddDependency(httpServer)

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	logger.Infof("%s is ready on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}
