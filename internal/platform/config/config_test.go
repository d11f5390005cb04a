package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "STORE_DRIVER", "CACHE_TTL_SECONDS", "CORS_ALLOWED_ORIGINS", "DB_NAME"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := FromEnv()

	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Contains(t, cfg.DBConnStr, "dbname=taskini")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("PHOTO_CLEANUP_MAX_ATTEMPTS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTExp)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.PhotoCleanupMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.PhotoCleanupBackoff)
}
