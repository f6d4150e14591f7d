package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/funkyjh/pilllog/internal/config"
	"github.com/funkyjh/pilllog/internal/domain/drugsearch"
	"github.com/funkyjh/pilllog/internal/domain/medication"
	"github.com/funkyjh/pilllog/internal/domain/symptom"
	"github.com/funkyjh/pilllog/internal/domain/upload"
	"github.com/funkyjh/pilllog/internal/domain/user"
	"github.com/funkyjh/pilllog/internal/platform/auth"
	"github.com/funkyjh/pilllog/internal/platform/blobstore"
	"github.com/funkyjh/pilllog/internal/platform/cache"
	"github.com/funkyjh/pilllog/internal/platform/db"
	"github.com/funkyjh/pilllog/internal/platform/middleware"
	"github.com/funkyjh/pilllog/internal/platform/ocr"
	"github.com/funkyjh/pilllog/migrations"
)

const (
	shutdownTimeout = 10 * time.Second
	uploadRoute     = "/api/upload"
)

func migrationsFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// stores groups the persistence backends selected by STORE_DRIVER.
type stores struct {
	medications medication.Repository
	uploads     upload.Repository
	symptoms    symptom.Repository
	users       user.Repository
	blobs       blobstore.Store
}

func memoryStores(maxUpload int64) stores {
	return stores{
		medications: medication.NewMemoryRepo(),
		uploads:     upload.NewMemoryRepo(),
		symptoms:    symptom.NewMemoryRepo(),
		users:       user.NewMemoryRepo(),
		blobs:       blobstore.NewMemoryStore(maxUpload),
	}
}

func postgresStores(pool *pgxpool.Pool, maxUpload int64) stores {
	return stores{
		medications: medication.NewRepoPG(pool),
		uploads:     upload.NewRepoPG(pool),
		symptoms:    symptom.NewRepoPG(pool),
		users:       user.NewRepoPG(pool),
		blobs:       blobstore.NewPGStore(pool, maxUpload),
	}
}

// deps overrides the external services built from config. Nil fields fall
// back to the configured clients.
type deps struct {
	recognizer ocr.Recognizer
	registry   drugsearch.Searcher
	cache      cache.Store
}

type app struct {
	echo      *echo.Echo
	processor *upload.Processor
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newRecognizer(cfg *config.Config, logger zerolog.Logger) ocr.Recognizer {
	if cfg.VisionAPIKey == "" {
		logger.Warn().Msg("VISION_API_KEY not set; uploads will fail OCR")
		return ocr.DisabledRecognizer{}
	}
	return ocr.NewVisionClient(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.OCRTimeout, logger)
}

func newSearchCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStore(), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to redis")
	return cache.NewRedisStore(client, "pilllog:"), closeRedis(client, logger), nil
}

func closeRedis(client *redis.Client, logger zerolog.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis close failed")
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, d deps) (*app, error) {
	a := &app{}

	var (
		st   stores
		pool *pgxpool.Pool
	)
	if cfg.UsesPostgres() {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to database")

		count, err := db.NewMigrator(pool, migrationsFS(cfg.MigrationsDir)).Up(ctx)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Int("applied", count).Msg("migrations up to date")
		st = postgresStores(pool, cfg.MaxUploadSize)
	} else {
		st = memoryStores(cfg.MaxUploadSize)
	}

	if d.recognizer == nil {
		d.recognizer = newRecognizer(cfg, logger)
	}
	if d.registry == nil {
		d.registry = drugsearch.NewClient(cfg.KFDABaseURL, cfg.KFDAAPIKey, cfg.RegistryTimeout, logger)
	}
	if d.cache == nil {
		store, closeFn, err := newSearchCache(ctx, cfg, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		d.cache = store
		a.closers = append(a.closers, closeFn)
	}

	userSvc := user.NewService(st.users)
	if _, err := userSvc.EnsureDemoUser(ctx, cfg.DemoUserID, cfg.DemoUsername, cfg.DemoPassword); err != nil {
		a.close()
		return nil, fmt.Errorf("seed demo user: %w", err)
	}

	medSvc := medication.NewService(st.medications)
	a.processor = upload.NewProcessor(
		upload.ProcessorConfig{Workers: cfg.UploadWorkers, QueueSize: cfg.UploadQueueSize},
		st.uploads, st.blobs, d.recognizer, medSvc, logger,
	)
	uploadSvc := upload.NewService(st.uploads, st.blobs, a.processor, logger)
	symptomSvc := symptom.NewService(st.symptoms, medSvc)
	searchSvc := drugsearch.NewService(d.registry, d.cache, cfg.SearchCacheTTL, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxBodySize, cfg.MaxUploadSize, uploadRoute))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"store":          cfg.StoreDriver,
			"pendingUploads": a.processor.Pending(),
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	api := e.Group("/api")
	api.Use(auth.DemoUserMiddleware(cfg.DemoUserID))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateCfg.RequestsPerSecond <= 0 || rateCfg.BurstSize <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}
	// Only writes and registry searches are limited.
	rateCfg.Skipper = func(c echo.Context) bool {
		r := c.Request()
		return r.Method == http.MethodGet && r.URL.Path != "/api/medications/search"
	}
	api.Use(middleware.RateLimit(rateCfg))

	medication.NewHandler(medSvc).RegisterRoutes(api)
	upload.NewHandler(uploadSvc).RegisterRoutes(api)
	symptom.NewHandler(symptomSvc, cfg.ExportLocation()).RegisterRoutes(api)
	user.NewHandler(userSvc).RegisterRoutes(api)
	drugsearch.NewHandler(searchSvc).RegisterRoutes(api)

	a.echo = e
	return a, nil
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, deps{})
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	// The processor outlives the listener so uploads accepted during
	// shutdown still reach a terminal state.
	procCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()

	g.Go(func() error {
		return a.processor.Run(procCtx)
	})

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		defer stopProcessor()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.echo.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
