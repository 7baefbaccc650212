package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/morphlabs/roomctx/internal/api/handlers"
	"github.com/morphlabs/roomctx/internal/config"
	"github.com/morphlabs/roomctx/internal/jobs"
	"github.com/morphlabs/roomctx/internal/openai"
	"github.com/morphlabs/roomctx/internal/repository"
	"github.com/morphlabs/roomctx/internal/server"
	"github.com/morphlabs/roomctx/internal/service"
	"github.com/morphlabs/roomctx/internal/storage"
	"github.com/morphlabs/roomctx/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the roomctx API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("ROOMCTX_OPENAI_API_KEY is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	var objectStore service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		objectStore = s3Client
	}

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:                 cfg.OpenAIAPIKey,
		EmbeddingModel:         openai.EmbeddingModelFromString(cfg.EmbeddingModel),
		FallbackEmbeddingModel: openai.EmbeddingModelFromString(cfg.EmbeddingFallbackModel),
		ChatModel:              cfg.ChatModel,
		Timeout:                cfg.ProviderTimeout,
	})

	chunkCfg := service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	retrievalCfg := service.RetrievalConfig{
		DefaultLimit:     cfg.RetrievalLimit,
		DefaultThreshold: cfg.RetrievalThreshold,
		RelaxedThreshold: cfg.RetrievalFloor,
		ScanLimit:        cfg.RetrievalScanLimit,
	}

	ingestionSvc := service.NewIngestionService(documentRepo, chunkRepo, ingestJobRepo, aiClient, objectStore, chunkCfg)
	retrievalSvc := service.NewRetrievalService(chunkRepo, aiClient, retrievalCfg)
	summarizerSvc := service.NewSummarizerService(conversationRepo, aiClient, service.SummarizerConfig{WindowTurns: cfg.SummaryWindowTurns})
	memorySvc := service.NewMemoryService(documentRepo, chunkRepo, conversationRepo, aiClient)
	conversationSvc := service.NewConversationService(conversationRepo, service.ConversationConfig{SummaryCadence: cfg.SummaryCadence})
	agentSvc := service.NewAgentService(retrievalSvc, conversationRepo, aiClient, service.AgentConfig{
		ContextLimit:     cfg.AgentContextLimit,
		ContextThreshold: cfg.AgentContextThreshold,
		HistoryTurns:     cfg.AgentHistoryTurns,
	})

	ingestProcessor := jobs.NewIngestWorker(ingestJobRepo, ingestionSvc)
	ingestWorker := jobs.NewWorker(ingestProcessor, 10*time.Second)
	go ingestWorker.Start(ctx)
	log.Println("ingest worker started")

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestionSvc),
		ContextHandler:  handlers.NewContextHandler(retrievalSvc),
		ChatHandler:     handlers.NewChatHandler(conversationSvc, agentSvc, summarizerSvc, memorySvc),
		SummaryHandler:  handlers.NewSummaryHandler(summarizerSvc, memorySvc, memorySvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
