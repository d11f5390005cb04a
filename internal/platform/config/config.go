package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	StorageLocal     = "local"
	StorageJetStream = "jetstream"
)

type Config struct {
	APIPort        string
	JWTKey         []byte
	JWTExp         time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string

	StoreDriver string

	MongoURI      string
	MongoDatabase string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	PhotoCleanupQueue          string
	PhotoCleanupLockTTLSeconds int
	PhotoCleanupMaxAttempts    int
	PhotoCleanupBackoff        time.Duration
	SessionChannelPrefix       string
	RevokedTokenPrefix         string

	StorageDriver string
	UploadDir     string
	NatsURL       string
	NatsBucket    string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	AppConfig = FromEnv()
}

// FromEnv builds a Config from the process environment without touching .env.
func FromEnv() *Config {
	cfg := &Config{
		APIPort:        getEnv("API_PORT", "5000"),
		JWTKey:         []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:         time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 720)) * time.Hour,
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		CORSOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "taskini"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "taskini"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      getEnvAsDuration("CACHE_TTL_SECONDS", 10*time.Minute),

		PhotoCleanupQueue:          getEnv("PHOTO_CLEANUP_QUEUE", "taskini:photo_cleanup"),
		PhotoCleanupLockTTLSeconds: getEnvAsInt("PHOTO_CLEANUP_LOCK_TTL_SECONDS", 60),
		PhotoCleanupMaxAttempts:    getEnvAsInt("PHOTO_CLEANUP_MAX_ATTEMPTS", 5),
		PhotoCleanupBackoff:        getEnvAsDuration("PHOTO_CLEANUP_BACKOFF_SECONDS", 30*time.Second),
		SessionChannelPrefix:       getEnv("SESSION_CHANNEL_PREFIX", "taskini:session:"),
		RevokedTokenPrefix:         getEnv("REVOKED_TOKEN_PREFIX", "taskini:revoked:"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		NatsURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		NatsBucket:    getEnv("NATS_BUCKET", "taskini-uploads"),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a whole number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return time.Duration(value) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
