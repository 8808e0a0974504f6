package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, 5, cfg.Ingest.MaxListings)
	assert.Equal(t, "odt", cfg.Report.Format)
	assert.Equal(t, "orders.odt", cfg.Report.OutputPath)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("INGEST_MAX_LISTINGS", "0")
	t.Setenv("INGEST_TIMEOUT", "3s")
	t.Setenv("REPORT_FORMAT", " TXT ")
	t.Setenv("OBS_PROMETHEUS_PATH", "metrics")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Ingest.MaxListings)
	assert.Equal(t, 3*time.Second, cfg.Ingest.Timeout)
	assert.Equal(t, "txt", cfg.Report.Format)
	assert.Equal(t, "orders.txt", cfg.Report.OutputPath)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Messaging.Kafka.Brokers)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	t.Run("report format", func(t *testing.T) {
		t.Setenv("REPORT_FORMAT", "pdf")
		_, err := New()
		assert.ErrorContains(t, err, "unsupported report format")
	})

	t.Run("empty selector", func(t *testing.T) {
		t.Setenv("INGEST_TITLE_SELECTOR", "")
		_, err := New()
		assert.ErrorContains(t, err, "selectors")
	})

	t.Run("cache driver", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "true")
		t.Setenv("CACHE_DRIVER", "memcached")
		_, err := New()
		assert.ErrorContains(t, err, "unsupported cache driver")
	})
}
