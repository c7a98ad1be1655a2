package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "JWT_SECRET", "DOCSTORE", "DATABASE_URL", "FIRESTORE_PROJECT",
	"REDIS_URL", "BLOB_STORE", "BLOB_DIR", "BLOB_BASE_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"PUBLICATION_THRESHOLD", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// inTempDir runs the test with a clean environment and no .env file.
func inTempDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "memory", cfg.DocStore)
	assert.Equal(t, int64(2), cfg.PublicationThreshold)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("PUBLICATION_THRESHOLD", "3")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DOCSTORE", "postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.PublicationThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "postgres", cfg.DocStore)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("PORT=9999\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
}

func TestLoadConfigErrors(t *testing.T) {
	inTempDir(t)
	t.Setenv("PUBLICATION_THRESHOLD", "0")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("DOCSTORE", "firestore")
	t.Setenv("FIRESTORE_PROJECT", "")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorContains(t, err, "PUBLICATION_THRESHOLD")
	assert.ErrorContains(t, err, "REQUEST_TIMEOUT")
	assert.ErrorContains(t, err, "FIRESTORE_PROJECT")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
