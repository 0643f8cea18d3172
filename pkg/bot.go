package pkg

import (
	"context"
	"errors"
	"log/slog"

	"ttc-bot/pkg/snapshot"
	"ttc-bot/pkg/stats"

	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"
)

// SnapshotStore caches the last refresh result for quick reads.
type SnapshotStore interface {
	Save(ctx context.Context, guildID snowflake.ID, data *stats.CacheData) error
	Load(ctx context.Context, guildID snowflake.ID) (*stats.CacheData, error)
	Delete(ctx context.Context, guildID snowflake.ID) error
}

type Bot struct {
	Stats *stats.Cache
	// Snapshots is nil when no Redis is configured.
	Snapshots SnapshotStore
}

func (b *Bot) IsRefreshing() bool {
	return b.Stats.IsRunning()
}

func (b *Bot) RefreshStats(ctx context.Context, fullRebuild bool) (*stats.CacheData, error) {
	data, err := b.Stats.Refresh(ctx, fullRebuild)
	if err != nil {
		return nil, err
	}
	b.saveSnapshot(ctx, data)
	return data, nil
}

// saveSnapshot drops the cached snapshot when the new one can't be written.
func (b *Bot) saveSnapshot(ctx context.Context, data *stats.CacheData) {
	if b.Snapshots == nil {
		return
	}
	guildID := b.Stats.GuildID()
	err := b.Snapshots.Save(ctx, guildID, data)
	if err == nil {
		return
	}
	slog.Warn("ttc: error while saving stats snapshot", slog.Any("guild.id", guildID), tint.Err(err))
	if err := b.Snapshots.Delete(ctx, guildID); err != nil {
		slog.Error("ttc: error while deleting stale stats snapshot", slog.Any("guild.id", guildID), tint.Err(err))
	}
}

// StatsData returns the cached snapshot when there is one and falls back to the database.
func (b *Bot) StatsData(ctx context.Context) (*stats.CacheData, error) {
	if b.Snapshots != nil {
		data, err := b.Snapshots.Load(ctx, b.Stats.GuildID())
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, snapshot.ErrMiss) {
			slog.Warn("ttc: error while loading stats snapshot", slog.Any("guild.id", b.Stats.GuildID()), tint.Err(err))
		}
	}
	data, err := b.Stats.Data(ctx)
	if err != nil {
		return nil, err
	}
	b.saveSnapshot(ctx, data)
	return data, nil
}
