package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"neurostudy/internal/auth"
	"neurostudy/internal/config"
	"neurostudy/internal/domain/repositories"
	studyRepo "neurostudy/internal/domain/repositories/study"
	domainGen "neurostudy/internal/domain/services/generation"
	"neurostudy/internal/handler"
	"neurostudy/internal/middleware"
	"neurostudy/internal/repository/memory"
	"neurostudy/internal/repository/postgres"
	"neurostudy/internal/repository/redis"
	"neurostudy/internal/service/diagram"
	"neurostudy/internal/service/export"
	"neurostudy/internal/service/generation"
	serviceLLM "neurostudy/internal/service/llm"
	"neurostudy/internal/service/sources"
	serviceStudy "neurostudy/internal/service/study"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", storageName(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	var (
		folderRepo  studyRepo.FolderRepository
		sessionRepo studyRepo.SessionRepository
		txManager   repositories.TransactionManager
	)
	if cfg.UsesDatabase() {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables, err := postgres.NewTableNames(cfg.TablePrefix)
		if err != nil {
			log.Fatalf("Invalid table prefix: %v", err)
		}
		if err := postgres.MigrateUp(pool, tables); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		folderRepo = postgres.NewFolderRepository(repoConfig)
		sessionRepo = postgres.NewSessionRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool, logger)
	} else {
		store := memory.NewStore()
		folderRepo = memory.NewFolderRepository(store)
		sessionRepo = memory.NewSessionRepository(store)
		txManager = memory.NewTransactionManager(store)
		logger.Warn("DATABASE_URL not set - using in-memory storage, data is lost on restart")
	}

	// One generation per study at a time
	var guard domainGen.Guard = memory.NewGuard()
	if cfg.RedisAddr != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		guard = redis.NewGuard(rdb, cfg.GenerationTimeout+time.Minute, logger)
		logger.Info("redis generation guard enabled", "addr", cfg.RedisAddr)
	}

	// Study services
	viewState := serviceStudy.NewViewStateService(sessionRepo)
	folderService := serviceStudy.NewFolderService(folderRepo, sessionRepo, txManager, viewState, logger)
	studyService := serviceStudy.NewStudyService(folderRepo, sessionRepo, txManager, viewState, logger)
	examService := serviceStudy.NewExamService(folderRepo, sessionRepo, txManager, viewState, logger)
	treeService := serviceStudy.NewTreeService(folderRepo, sessionRepo, logger)

	// Model-backed services
	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	crossref := sources.NewCrossrefClientWithConfig(cfg.CrossrefBaseURL, cfg.CrossrefMailto, cfg.FetchTimeout, logger)
	pages := sources.NewPageFetcher(cfg.FetchTimeout, logger)
	renderer, err := diagram.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to load diagram fonts: %v", err)
	}

	generator, err := generation.NewGenerator(
		studyService,
		providerRegistry,
		guard,
		crossref,
		pages,
		renderer,
		generation.Settings{
			Timeout:  cfg.GenerationTimeout,
			Language: cfg.OutputLanguage,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	markdown := export.NewService(studyService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	api := http.NewServeMux()
	handler.RegisterRoutes(api, &handler.Handlers{
		Folder:     handler.NewFolderHandler(folderService, examService, logger),
		Tree:       handler.NewTreeHandler(treeService, logger),
		Study:      handler.NewStudyHandler(studyService, logger),
		Generation: handler.NewGenerationHandler(generator, logger),
		Assist:     handler.NewAssistHandler(generator, crossref, logger),
		Export:     handler.NewExportHandler(markdown, logger),
		Workspace:  handler.NewWorkspaceHandler(viewState, logger),
	})

	var verifier auth.TokenVerifier
	if cfg.AuthJWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		verifier = jwtVerifier
	} else {
		logger.Warn("AUTH_JWKS_URL not set - serving every request as the local user", "user_id", cfg.LocalUserID)
	}

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Library → Routes
	var apiHandler http.Handler = api
	apiHandler = middleware.Library(folderService, logger)(apiHandler)
	apiHandler = middleware.Auth(verifier, cfg.LocalUserID, logger)(apiHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("/api/", apiHandler)

	var root http.Handler = middleware.Recovery(logger)(mux)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Generation requests can run for minutes
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

func storageName(cfg *config.Config) string {
	if cfg.UsesDatabase() {
		return "postgres"
	}
	return "memory"
}
