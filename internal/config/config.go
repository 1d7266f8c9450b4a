package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Catalog backends selectable through CATALOG_BACKEND.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	CatalogBackend        string
	DatabaseURL           string
	MongoURI              string
	MongoDatabase         string
	FirestoreProjectID    string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SearchCacheTTLSeconds int
	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminEmail            string
	AdminPassword         string
	WhatsAppPhone         string
	PublicBaseURL         string
	RequestTimeoutSeconds int
	LogLevel              string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	searchTTL := positiveInt("SEARCH_CACHE_TTL_SECONDS", 60)
	tokenTTL := positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480)
	requestTimeout := positiveInt("REQUEST_TIMEOUT_SECONDS", 15)

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		CatalogBackend:        strings.ToLower(strings.TrimSpace(os.Getenv("CATALOG_BACKEND"))),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDatabase:         getEnv("MONGO_DATABASE", "belajoia"),
		FirestoreProjectID:    os.Getenv("FIRESTORE_PROJECT_ID"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		SearchCacheTTLSeconds: searchTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		AdminEmail:            strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		WhatsAppPhone:         getEnv("WHATSAPP_PHONE", "5511999999999"),
		PublicBaseURL:         strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RequestTimeoutSeconds: requestTimeout,
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// Without an explicit backend, a configured DATABASE_URL still selects
	// postgres so existing deployments keep working.
	if cfg.CatalogBackend == "" {
		cfg.CatalogBackend = BackendMemory
		if cfg.DatabaseURL != "" {
			cfg.CatalogBackend = BackendPostgres
		}
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.CatalogBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres catalog")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo catalog")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.SearchCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
