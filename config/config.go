package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Хранилища и источники, которые можно выбрать через окружение
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"

	ImageStoreLocal = "local"
	ImageStoreMongo = "mongo"

	DetectorStub = "stub"
	DetectorGRPC = "grpc"
)

type Config struct {
	TelegramToken string
	LogLevel      string
	Environment   string
	DefaultLocale string

	StorageBackend string
	SQLitePath     string
	DatabaseDSN    string

	SessionBackend string
	RedisAddr      string
	SessionTTL     time.Duration

	ImageStore    string
	ImageDir      string
	MongoURI      string
	MongoDatabase string

	Detector         string
	InferenceAddr    string
	DetectionTimeout time.Duration
	StubDelay        time.Duration
	MinImageSide     int

	JWTSecret string
	PublicURL string
	HTTPAddr  string
	SentryDSN string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Environment:   getEnv("APP_ENV", "development"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		SQLitePath:     getEnv("SQLITE_DB_PATH", "./maize-bot.db"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", SessionMemory)),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),

		ImageStore:    strings.ToLower(getEnv("IMAGE_STORE", ImageStoreLocal)),
		ImageDir:      getEnv("IMAGE_DIR", "./uploads"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "maize"),

		Detector:      strings.ToLower(getEnv("DETECTOR", DetectorStub)),
		InferenceAddr: os.Getenv("INFERENCE_ADDR"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		SentryDSN: os.Getenv("SENTRY_DSN"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DetectionTimeout, err = getDuration("DETECTION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.StubDelay, err = getDuration("STUB_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.MinImageSide, err = getInt("MIN_IMAGE_SIDE", 64); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные значения и согласованность бэкендов.
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	switch c.SessionBackend {
	case SessionMemory, SessionRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.ImageStore {
	case ImageStoreLocal, ImageStoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore))
	}

	switch c.Detector {
	case DetectorStub:
	case DetectorGRPC:
		if c.InferenceAddr == "" {
			errs = append(errs, errors.New("INFERENCE_ADDR is required for grpc detector"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DETECTOR %q", c.Detector))
	}

	if c.DefaultLocale != "en" && c.DefaultLocale != "ru" {
		errs = append(errs, fmt.Errorf("unsupported DEFAULT_LOCALE %q", c.DefaultLocale))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
