package main

import (
	"context"
	stdlog "log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
	"github.com/FACorreiaa/go-expensefund/internal/server"
	"github.com/FACorreiaa/go-expensefund/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("Warning: Error loading .env file, using environment variables")
	}

	if err := logger.Init(zapcore.InfoLevel, zap.String("service", "expensefund")); err != nil {
		return err
	}
	log := logger.Log
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	otelShutdown, err := server.InitObservability("expensefund", ":9092", log)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			log.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	router := server.SetupRouter(srv.GetDBPool(), cfg, log)
	srv.SetRouter(router)

	// pprof stays on its own port, never exposed publicly
	server.StartPprofServer(":6060")

	httpServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go server.GracefulShutdown(httpServer, log, done)

	log.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != nil {
		log.Error("Server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")

	return nil
}
