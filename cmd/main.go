package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"maize-bot/config"
	telegram "maize-bot/internal/api"
	"maize-bot/internal/auth"
	"maize-bot/internal/container"
	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
	"maize-bot/internal/infrastructure/inference"
	"maize-bot/internal/infrastructure/mail"
	"maize-bot/internal/infrastructure/storage"
	"maize-bot/internal/infrastructure/storage/postgres"
	"maize-bot/internal/infrastructure/storage/sqlite"
	"maize-bot/internal/infrastructure/vision"
	"maize-bot/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("maize-bot stopped: %v", err)
		os.Exit(1)
	}
}

// run собирает зависимости и работает до сигнала остановки. Ошибки
// возвращаются наверх, чтобы отложенные закрытия и сброс Sentry отработали.
func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger, flush, err := logging.WithSentry(baseLogger, cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer flush()
	defer logger.Sync() //nolint:errcheck
	defer func() {
		if err != nil {
			logger.Error("startup failed", zap.Error(err))
		}
	}()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	checks := map[string]telegram.HealthCheck{}

	history, accounts, err := initStorage(ctx, cfg, logger, checks, &closers)
	if err != nil {
		return err
	}
	sessions, err := initSessions(ctx, cfg, checks, &closers)
	if err != nil {
		return err
	}
	images, err := initImageStore(ctx, cfg, checks, &closers)
	if err != nil {
		return err
	}
	detector, err := initDetector(ctx, cfg, logger, &closers)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, "maize-bot")
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:         storage.NewMemoryUserRepository(entity.Locale(cfg.DefaultLocale)),
		DefaultLocale: entity.Locale(cfg.DefaultLocale),
		Accounts:      accounts,
		Sessions:      sessions,
		Mailer:        mail.NewLogMailer(logger),
		Tokens:        tokens,
		History:       history,
		Images:        images,
		Detector:      detector,
		Decoder:       vision.NewDecoder(cfg.MinImageSide),
		PublicURL:     cfg.PublicURL,
		SessionTTL:    cfg.SessionTTL,
		DetectTimeout: cfg.DetectionTimeout,
		Logger:        logger,
	})

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, logger)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           telegram.NewHealthRouter(checks, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serveHTTPServer(ctx, server, shutdownTimeout, logger)
	}()

	logger.Info("bot is running", zap.String("health_addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageBackend), zap.String("detector", cfg.Detector))
	if err := bot.Run(ctx); err != nil {
		logger.Error("bot error", zap.Error(err))
	}
	stop()

	if err := <-serverErr; err != nil {
		logger.Error("health server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]telegram.HealthCheck, closers *[]func()) (port.HistoryRepository, port.AccountRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		*closers = append(*closers, func() { _ = db.Close() })
		checks["storage"] = db.PingContext
		return sqlite.NewHistoryRepository(db), sqlite.NewAccountRepository(db), nil

	case config.StoragePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		db, err := postgres.Open(dbCtx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("access postgres handle: %w", err)
		}
		*closers = append(*closers, func() { _ = sqlDB.Close() })
		checks["storage"] = sqlDB.PingContext
		return postgres.NewHistoryRepository(db), postgres.NewAccountRepository(db), nil

	default:
		logger.Warn("using in-memory storage, history is lost on restart")
		return storage.NewMemoryHistoryRepository(), storage.NewMemoryAccountRepository(), nil
	}
}

func initSessions(ctx context.Context, cfg *config.Config, checks map[string]telegram.HealthCheck, closers *[]func()) (port.SessionStore, error) {
	if cfg.SessionBackend != config.SessionRedis {
		return storage.NewMemorySessionStore(), nil
	}

	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := storage.ConnectRedis(redisCtx, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	*closers = append(*closers, func() { _ = client.Close() })
	checks["sessions"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return storage.NewRedisSessionStore(client), nil
}

func initImageStore(ctx context.Context, cfg *config.Config, checks map[string]telegram.HealthCheck, closers *[]func()) (port.ImageStore, error) {
	if cfg.ImageStore != config.ImageStoreMongo {
		return storage.NewLocalImageStore(cfg.ImageDir, ""), nil
	}

	mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := storage.ConnectMongo(mongoCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	*closers = append(*closers, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(disconnectCtx)
	})
	checks["images"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }

	store, err := storage.NewMongoImageStore(db, storage.DefaultImageBucket)
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return store, nil
}

func initDetector(ctx context.Context, cfg *config.Config, logger *zap.Logger, closers *[]func()) (port.Detector, error) {
	if cfg.Detector != config.DetectorGRPC {
		return vision.NewStubDetector(logger, vision.WithDelay(cfg.StubDelay)), nil
	}

	conn, err := inference.Dial(ctx, cfg.InferenceAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to inference service: %w", err)
	}
	*closers = append(*closers, func() { _ = conn.Close() })
	return inference.NewDetector(conn, logger), nil
}

// serveHTTPServer обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func serveHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
