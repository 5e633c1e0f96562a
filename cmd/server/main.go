package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	grpcapi "autograde-backend/internal/api/grpc"
	httpapi "autograde-backend/internal/api/http"
	"autograde-backend/internal/config"
	"autograde-backend/internal/domain"
	"autograde-backend/internal/enrichment"
	"autograde-backend/internal/jobs"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository/postgres"
	"autograde-backend/internal/scheduler"
	"autograde-backend/internal/security"
	"autograde-backend/internal/service"
	"autograde-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting AutoGrade appraisal backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	// Initialize photo storage
	logger.Info("Using local photo storage", "upload_dir", cfg.Storage.UploadDir)
	photos, err := storage.NewLocalStorage(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize photo storage: %v", err)
	}

	// Enrichment providers
	var images enrichment.ImageAnalyzer
	if cfg.Enrichment.VisionEnabled {
		client, err := enrichment.NewVisionClient(ctx, cfg.Enrichment.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to create Cloud Vision client: %v", err)
		}
		defer client.Close()
		images = enrichment.NewVisionAnalyzer(client)
		logger.Info("Photo analysis enabled", "provider", "cloud-vision")
	} else {
		logger.Warn("Photo analysis disabled; set enrichment.vision_enabled to turn it on")
	}

	vins := enrichment.NewVPICDecoder(enrichment.VPICOptions{
		BaseURL:     cfg.Enrichment.VPICBaseURL,
		RatePerSec:  cfg.Enrichment.VPICRatePerSec,
		MaxAttempts: cfg.Enrichment.VPICMaxAttempts,
	})

	var regos enrichment.RegistrationLookup
	switch cfg.Registration.Source {
	case "postgres":
		regos = enrichment.NewRepositoryLookup(store.RegistrationRepository)
	default:
		regos = enrichment.NewFixtureLookup(enrichment.DefaultRegistrations, 0)
	}
	logger.Info("Registration lookup configured", "source", cfg.Registration.Source)

	// Delivery channels
	var notifier service.Notifier = service.NewLogNotifier()
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := service.NewFCMClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase messaging: %v", err)
		}
		notifier = service.NewFCMNotifier(fcm, store.AppraiserRepository)
		logger.Info("Push notices enabled", "provider", "fcm")
	}

	var mailer service.ReportMailer = service.NewLogMailer()
	if cfg.SendGrid.APIKey != "" {
		mailer = service.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
		logger.Info("Report email enabled", "provider", "sendgrid", "from", cfg.SendGrid.FromEmail)
	}

	// Initialize Services
	sessions := service.NewSessionStore()
	authSvc := service.NewAuthService(store.AppraiserRepository, tokenManager)
	appraisalSvc := service.NewAppraisalService(sessions, store.AppraisalRepository, photos, mailer, service.AppraisalOptions{
		IdleTTL: cfg.SessionIdleTTL(),
	})
	enrichmentSvc := service.NewEnrichmentService(sessions, images, vins, regos, photos, notifier, service.EnrichmentOptions{
		Timeout:      cfg.EnrichmentTimeout(),
		MaxNotices:   cfg.Session.MaxNotices,
		ImageMaxDim:  cfg.Enrichment.ImageMaxDim,
		ImageQuality: cfg.Enrichment.ImageJPEGQuality,
	})

	// REST API
	router := httpapi.NewRouter(httpapi.Options{
		Auth:           authSvc,
		Appraisals:     appraisalSvc,
		Enrichments:    enrichmentSvc,
		Photos:         photos,
		Tokens:         tokenManager,
		MaxUploadBytes: cfg.Storage.MaxFileSize << 20,
		LiveSessions:   sessions.Len,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health
	grpcServer := grpcapi.NewServer(tokenManager)
	grpcServer.SetProviderAvailable(domain.EnrichmentImage, images != nil)
	grpcServer.SetProviderAvailable(domain.EnrichmentVIN, true)
	grpcServer.SetProviderAvailable(domain.EnrichmentRegistration, true)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	// Session sweeps run in this process because sessions live here
	cronScheduler := scheduler.NewScheduler(jobs.NewJobRunner(appraisalSvc, cfg))
	cronScheduler.Start()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	grpcServer.SetServing(true)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		logger.Error("HTTP server error", "error", err)
	}

	// Graceful shutdown
	grpcServer.SetServing(false)
	cronScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}
