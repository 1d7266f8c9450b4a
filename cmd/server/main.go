package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"belajoia/backend/internal/blob"
	"belajoia/backend/internal/cache"
	"belajoia/backend/internal/cart"
	"belajoia/backend/internal/config"
	"belajoia/backend/internal/httpapi"
	"belajoia/backend/internal/kv"
	"belajoia/backend/internal/recommendation"
	"belajoia/backend/internal/search"
	"belajoia/backend/internal/service"
	"belajoia/backend/internal/store"
	fsstore "belajoia/backend/internal/store/firestore"
	"belajoia/backend/internal/store/memory"
	mongostore "belajoia/backend/internal/store/mongo"
	pgstore "belajoia/backend/internal/store/postgres"
)

const cartTTL = 30 * 24 * time.Hour

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repo, blobs, closers, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("catalog unavailable", zap.String("backend", cfg.CatalogBackend), zap.Error(err))
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var (
		cartBackend kv.Store          = kv.NewMemory()
		searchCache cache.SearchCache = cache.NoopSearchCache{}
	)
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCache := cache.NewRedisSearchCache(client)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, carts and search cache stay in memory", zap.Error(err))
			_ = client.Close()
		} else {
			cartBackend = kv.NewRedis(client, cartTTL)
			searchCache = redisCache
			closers = append(closers, client.Close)
			logger.Info("cart store: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cart store: in-memory")
	}

	carts := cart.NewStore(cartBackend, logger.Named("cart"))
	if err := carts.StartRelay(relayCtx); err != nil {
		logger.Warn("cart events will not reach other instances", zap.Error(err))
	}

	searcher := search.NewAggregator(repo, searchCache, cfg.SearchCacheTTL(), logger.Named("search"))
	related := recommendation.NewEngine(searchCache, cfg.SearchCacheTTL())
	svc := service.New(repo, carts, searcher, related, blobs, service.Settings{
		WhatsAppPhone: cfg.WhatsAppPhone,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger.Named("service"))

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("failed to provision admin account", zap.Error(err))
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, cfg.RequestTimeout())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("storefront backend listening", zap.String("addr", cfg.Address()), zap.String("catalog", cfg.CatalogBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	stopRelay()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openCatalog connects the configured catalog backend. Product images live in
// GridFS when the catalog is on MongoDB and in process memory otherwise.
func openCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Repository, blob.Storage, []func() error, error) {
	closers := make([]func() error, 0, 2)

	switch cfg.CatalogBackend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pg.Migrate(); err != nil {
			_ = pg.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("catalog: postgres")
		return pg, blob.NewMemory(), append(closers, pg.Close), nil

	case config.BackendMongo:
		db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, func() error {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.Client().Disconnect(disconnectCtx)
		})

		repo := mongostore.New(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			logger.Warn("failed to create mongo indexes", zap.Error(err))
		}
		images, err := blob.NewGridFS(db, "product_images")
		if err != nil {
			return nil, nil, closers, err
		}
		logger.Info("catalog: mongo", zap.String("database", cfg.MongoDatabase))
		return repo, images, closers, nil

	case config.BackendFirestore:
		client, err := fsstore.Connect(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := fsstore.New(client)
		logger.Info("catalog: firestore", zap.String("project", cfg.FirestoreProjectID))
		return repo, blob.NewMemory(), append(closers, repo.Close), nil
	}

	logger.Info("catalog: in-memory")
	return memory.NewSeeded(), blob.NewMemory(), closers, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set when ADMIN_EMAIL is")
	}
	if cfg.AdminPassword != "" {
		if err := validatePasswordStrength(cfg.AdminPassword); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, passwords that repeat a
// single character, ascending or descending runs, and a known-weak list.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("at least 10 characters required")
	}

	known := map[string]bool{
		"1234567890": true, "0123456789": true, "senha12345": true,
		"password123": true, "admin12345": true, "belajoia123": true,
		"qwertyuiop": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("single-character password not allowed")
	}

	// Reject runs like abcdefghij or 9876543210.
	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}

	return nil
}
