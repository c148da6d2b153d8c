package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ENV string
}

type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type DBConfig struct {
	Driver   string // postgres | mysql | sqlite
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type HTTPConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type GRPCConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SessionSecret      string
	SecureCookies      bool
	TokenTTL           time.Duration
	FrontendURL        string
}

type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

type StorageConfig struct {
	Region        string
	Bucket        string
	PublicBaseURL string
	PresignTTL    time.Duration
}

type DeckConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

type Config struct {
	App     AppConfig
	Log     LogConfig
	DB      DBConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Auth    AuthConfig
	LLM     LLMConfig
	Storage StorageConfig
	Deck    DeckConfig
}

func New() *Config {
	// A missing .env is fine, real deployments use the environment.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "tubematch")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DATABASE_URL")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "postgres")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "postgres")
		cfg.DB.Name = getEnvDefault("DB_NAME", "tubematch")
		cfg.DB.DSN = buildDSN(&cfg.DB)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.AllowedOrigins = splitList(getEnvDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	// gRPC (health only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.Auth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.Auth.GoogleRedirectURL = getEnvDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	cfg.Auth.SessionSecret = getEnvDefault("SESSION_SECRET", "dev-insecure-session-secret")
	cfg.Auth.SecureCookies = isTruthy(os.Getenv("SESSION_SECURE"))
	cfg.Auth.TokenTTL = getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour)
	cfg.Auth.FrontendURL = strings.TrimRight(getEnvDefault("FRONTEND_URL", "http://localhost:3000"), "/")

	// LLM (OpenAI compatible)
	cfg.LLM.BaseURL = strings.TrimRight(getEnvDefault("LLM_BASE_URL", "https://api.openai.com/v1"), "/")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.Model = getEnvDefault("LLM_MODEL", "gpt-4o-mini")
	cfg.LLM.EmbeddingModel = getEnvDefault("LLM_EMBEDDING_MODEL", "text-embedding-3-small")
	cfg.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 30*time.Second)

	// Avatar storage
	cfg.Storage.Region = getEnvDefault("AWS_REGION", "us-east-1")
	cfg.Storage.Bucket = os.Getenv("S3_BUCKET_NAME")
	cfg.Storage.PublicBaseURL = strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/")
	cfg.Storage.PresignTTL = getEnvDuration("S3_PRESIGN_TTL", 5*time.Minute)

	// Deck
	cfg.Deck.DefaultLimit = getEnvInt("DECK_DEFAULT_LIMIT", 20)
	cfg.Deck.MaxLimit = getEnvInt("DECK_MAX_LIMIT", 50)
	cfg.Deck.CacheTTL = getEnvDuration("DECK_CACHE_TTL", 5*time.Minute)

	return cfg
}

// buildDSN assembles a driver specific DSN from the discrete DB settings.
func buildDSN(db *DBConfig) string {
	switch db.Driver {
	case "mysql":
		db.Port = getEnvDefault("DB_PORT", "3306")
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			db.User, db.Password, db.Host, db.Port, db.Name,
		)
	case "sqlite":
		return "file:" + db.Name + ".db?_foreign_keys=on"
	default:
		db.Port = getEnvDefault("DB_PORT", "5432")
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Port, db.User, db.Password, db.Name,
		)
	}
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
