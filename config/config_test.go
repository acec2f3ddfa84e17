package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TIMELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return decode(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, 400, cfg.Timeline.MaxItems)
	assert.Equal(t, int64(40), cfg.Timeline.ReblogRankThreshold)
	assert.Equal(t, 100, cfg.Timeline.MergeWindow)
	assert.Equal(t, int64(262144), cfg.Timeline.RangeSpan)
	assert.Equal(t, 48*time.Hour, cfg.Timeline.FeedUpdatedDuration)
	assert.Equal(t, 14*24*time.Hour, cfg.Timeline.FeedPersistentDuration)
	assert.Equal(t, "@every 1h", cfg.Scheduler.CleanupSpec)
}

func TestOverridesFromYAMLAndEnv(t *testing.T) {
	t.Setenv("TIMELINE_REDIS_ADDR", "redis:6380")
	cfg, err := load(t, `
timeline:
  max_items: 800
  feed_updated_duration: 72h
database:
  driver: sqlite
  dsn: "file::memory:"
`)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Timeline.MaxItems)
	assert.Equal(t, 72*time.Hour, cfg.Timeline.FeedUpdatedDuration)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestValidation(t *testing.T) {
	_, err := load(t, `
timeline:
  default_limit: 50
  max_limit: 40
`)
	assert.ErrorContains(t, err, "invalid config")

	_, err = load(t, `
timeline:
  feed_updated_duration: 400h
`)
	assert.ErrorContains(t, err, "FeedPersistentDuration")

	_, err = load(t, `
tracing:
  enabled: true
`)
	assert.ErrorContains(t, err, "Endpoint")

	_, err = load(t, `
database:
  driver: mysql
`)
	assert.Error(t, err)
}
