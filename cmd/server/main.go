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

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/api"
	"github.com/lalith-99/potluck/internal/blob"
	"github.com/lalith-99/potluck/internal/cache"
	"github.com/lalith-99/potluck/internal/config"
	"github.com/lalith-99/potluck/internal/db"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/docstore/firestore"
	"github.com/lalith-99/potluck/internal/docstore/memory"
	"github.com/lalith-99/potluck/internal/docstore/postgres"
	"github.com/lalith-99/potluck/internal/engagement"
	"github.com/lalith-99/potluck/internal/events"
	"github.com/lalith-99/potluck/internal/membership"
	"github.com/lalith-99/potluck/internal/middleware"
	"github.com/lalith-99/potluck/internal/observ"
	"github.com/lalith-99/potluck/internal/repository/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]func(context.Context) error{}

	// Document store.
	docs, closeDocs, err := openDocStore(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeDocs()

	// Like-count cache. Without REDIS_URL counts are read from the store.
	var likeCache cache.LikeCache = cache.Nop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		likeCache = cache.NewRedis(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("like cache enabled")
	}

	blobs, err := blob.Open(ctx, blob.Config{
		Kind:    cfg.BlobStore,
		Dir:     cfg.BlobDir,
		BaseURL: cfg.BlobBaseURL,
		S3: blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		},
		GCS: cfg.GCSBucket,
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer blobs.Close()

	// Events go to websocket subscribers and, when configured, to Kafka.
	hub := events.NewHub(logger)
	publisher := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
		defer k.Close()
		publisher = append(publisher, k)
		logger.Info("kafka events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	members := membership.New(docs, logger,
		membership.WithThreshold(cfg.PublicationThreshold),
		membership.WithPublisher(publisher),
	)
	counter := engagement.New(docs, logger,
		engagement.WithCache(likeCache),
		engagement.WithPublisher(publisher),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx.Done())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Users:          store.NewUserStore(docs),
		Communities:    store.NewCommunityStore(docs),
		Posts:          store.NewPostStore(docs),
		Recipes:        store.NewRecipeStore(docs),
		Ratings:        store.NewRatingStore(docs),
		Boards:         store.NewBoardStore(docs),
		Members:        members,
		Engagement:     counter,
		Blobs:          blobs,
		Live:           hub,
		Checks:         checks,
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Logger:         logger,
	})
	if fs, ok := blobs.(*blob.FSStore); ok {
		router.Static("/blobs", fs.Dir())
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting potluck",
			zap.String("port", cfg.Port),
			zap.String("docstore", cfg.DocStore),
			zap.String("blob_store", cfg.BlobStore),
			zap.Int64("publication_threshold", members.Threshold()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openDocStore selects the backend named by DOCSTORE and registers its health
// check. The returned func releases it.
func openDocStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]func(context.Context) error) (docstore.Store, func(), error) {
	switch cfg.DocStore {
	case "postgres":
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		s := postgres.New(database.Pool())
		if err := s.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrate documents: %w", err)
		}
		checks["postgres"] = database.Health
		return s, database.Close, nil

	case "firestore":
		s, err := firestore.New(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("firestore connected", zap.String("project", cfg.FirestoreProject))
		return s, func() { _ = s.Close() }, nil

	default:
		logger.Warn("using in-memory document store; data is lost on restart")
		s := memory.New()
		return s, func() { _ = s.Close() }, nil
	}
}
