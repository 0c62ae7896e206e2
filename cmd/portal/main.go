package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/office-portal/cmd/mainconfig"
	"github.com/wolfman30/office-portal/internal/api/router"
	"github.com/wolfman30/office-portal/internal/app/bootstrap"
	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/http/handlers"
	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting office portal",
		"env", cfg.Env,
		"port", cfg.Port,
		"office_api", cfg.OfficeAPIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	portalMetrics := metrics.NewPortalMetrics(reg)

	var (
		dynamoClient session.DynamoAPI
		s3Client     csvexport.S3API
	)
	if cfg.CredentialStore == "dynamodb" || cfg.ExportS3Bucket != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if cfg.CredentialStore == "dynamodb" {
			dynamoClient = mainconfig.NewDynamoClient(awsCfg)
		}
		if cfg.ExportS3Bucket != "" {
			s3Client = mainconfig.NewS3Client(awsCfg, cfg)
		}
	}

	store, closeStore, err := bootstrap.BuildCredentialStore(ctx, cfg, logger, dynamoClient)
	if err != nil {
		logger.Error("failed to build credential store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	engine, err := bootstrap.BuildEngine(cfg, store, logger, portalMetrics, bootstrap.EngineOptions{})
	if err != nil {
		logger.Error("failed to build portal engine", "error", err)
		os.Exit(1)
	}

	sink, err := bootstrap.BuildExportSink(cfg, s3Client, logger)
	if err != nil {
		logger.Error("failed to build export sink", "error", err)
		os.Exit(1)
	}

	live := handlers.NewLiveHub(engine.Sessions.State, logger)
	engine.Sessions.OnChange(live.SessionChanged)
	engine.Board.OnChange(live.DashboardChanged)

	r := router.New(&router.Config{
		Logger:             logger,
		Portal:             handlers.NewPortalHandler(engine.Sessions, engine.Board, engine.Messages, sink, logger),
		Live:               live,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PortalJWTSecret:    cfg.PortalJWTSecret,
		LoginRateLimit:     cfg.LoginRateLimit,
	})

	go restoreSession(ctx, engine, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// restoreSession picks up a remembered credential and loads the default
// range once it verifies.
func restoreSession(ctx context.Context, engine *bootstrap.Engine, logger *logging.Logger) {
	verified, err := engine.Sessions.Restore(ctx)
	if errors.Is(err, session.ErrNoStoredCredential) {
		logger.Info("no remembered office session")
		return
	}
	if err != nil {
		logger.Warn("failed to load remembered office session", "error", err)
		return
	}
	if err := <-verified; err != nil {
		logger.Warn("remembered office session rejected", "error", err)
		return
	}
	if err := engine.Board.Fetch(ctx, engine.Board.Range()); err != nil {
		logger.Warn("initial booking fetch failed", "error", err)
	}
}
