package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"billed/internal/amqp"
	"billed/internal/cli"
	"billed/internal/files"
	apphttp "billed/internal/http"
	"billed/internal/log"
	"billed/internal/services"
	"billed/internal/session"
)

func main() {
	// Load .env file for local development (ignored in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	proofs, err := files.NewStore(cfg.UploadDir, "/files/")
	if err != nil {
		logger.Error("Failed to initialize upload directory", log.FieldError, err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		opts = append(opts, services.WithPublisher(client))
		logger.Info("Publishing bill.submitted messages", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}
	bills := services.NewBillService(be.Repository, proofs, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Bills:  bills,
		Tokens: session.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL),
		Files:  proofs,
		Ping:   be.Ping,
		Logger: logger,
	}, apphttp.Options{
		ModalWidth:     cfg.ModalWidth,
		StoreTimeout:   cfg.StoreTimeout,
		ListCacheSize:  cfg.ListCacheSize,
		ListCacheTTL:   cfg.ListCacheTTL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		SecureCookies:  cfg.SecureCookies,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting billed server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
