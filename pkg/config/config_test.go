package config

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("GUILD_ID", "123456789012345678")
	t.Setenv("DATABASE_URL", "postgres://localhost/ttc")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, snowflake.ID(123456789012345678), cfg.GuildID)
	assert.Equal(t, 8, cfg.Stats.MaxConcurrentScans)
	assert.Equal(t, "@every 6h", cfg.Stats.RefreshSchedule)
	assert.InDelta(t, 5.0, cfg.Stats.PagesPerSecond, 0.001)
	assert.Equal(t, 10, cfg.Leaderboard.Size)
	assert.Equal(t, 10*time.Minute, cfg.Leaderboard.SnapshotTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadNestedEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STATS_MAX_CONCURRENT_SCANS", "3")
	t.Setenv("STATS_REFRESH_SCHEDULE", "")
	t.Setenv("LEADERBOARD_SNAPSHOT_TTL", "30s")
	t.Setenv("ENVIRONMENT", "PROD")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Stats.MaxConcurrentScans)
	assert.Empty(t, cfg.Stats.RefreshSchedule)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.SnapshotTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("GUILD_ID", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "bot_token is required")
	assert.ErrorContains(t, err, "guild_id is required")
	assert.ErrorContains(t, err, "database_url is required")
}

func TestLoadInvalidGuildID(t *testing.T) {
	setRequired(t)
	t.Setenv("GUILD_ID", "not-a-snowflake")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid guild_id")
}
