package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clts "hlradar/clients"
	"hlradar/config"
	"hlradar/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Optional .env for local development; env vars win in production
	_ = godotenv.Load()

	envConfig := config.Load()

	var logger *zap.Logger
	var err error
	if envConfig.IsProd {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting hlradar", zap.Bool("isProd", envConfig.IsProd))

	if result := envConfig.Validate(); !result.Valid {
		for _, verr := range result.Errors {
			logger.Error("invalid configuration",
				zap.String("field", verr.Field),
				zap.String("message", verr.Message),
			)
		}
		logger.Fatal("configuration validation failed")
	}

	// LiveConfig with env config as initial value; the bot and the web API
	// mutate it at runtime
	liveConfig := config.NewLiveConfig(envConfig)

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, envConfig)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, liveConfig)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
