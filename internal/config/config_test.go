package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_DRIVER", "REDIS_URL", "CODE_GEN_MAX_ATTEMPTS", "VIOLATION_LOG_CAP", "COUNTDOWN_INTERVAL_SECONDS", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 10, cfg.CodeGenMaxAttempts)
	assert.Equal(t, 1000, cfg.ViolationLogCap)
	assert.Equal(t, 5*time.Second, cfg.CountdownInterval)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("VIOLATION_LOG_CAP", "250")
	t.Setenv("CODE_GEN_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SESSION_TOKEN_EXPIRY_HOURS", "2")
	t.Setenv("ALLOWED_ORIGINS", " https://proctor.cec.edu , ,https://admin.cec.edu")

	cfg := Load()
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 250, cfg.ViolationLogCap)
	assert.Equal(t, 10, cfg.CodeGenMaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.SessionTokenExpiry)
	assert.Equal(t, []string{"https://proctor.cec.edu", "https://admin.cec.edu"}, cfg.AllowedOrigins)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "exam:code:MATH2025042", CacheKey.AccessCodeKey("math2025042"))
	assert.Equal(t, "exam:abc:monitor", CacheKey.ExamMonitorChannel("abc"))
	assert.Equal(t, "ingest_violations_queue", WorkerKey.IngestViolationsQueue)
}
