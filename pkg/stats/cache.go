package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyRunning = errors.New("cache already being updated")
	// ErrChannelInaccessible is returned by a Platform for channels the bot cannot read.
	ErrChannelInaccessible = errors.New("channel is not accessible")
)

const defaultMaxConcurrentScans = 8

// Platform is the chat platform the cache reads from.
type Platform interface {
	Emojis(ctx context.Context, guildID snowflake.ID) ([]Emoji, error)
	Channels(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error)
	Members(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error)
	// Messages calls fn for every message of the channel from newest to oldest
	// until fn returns false or the history ends.
	Messages(ctx context.Context, channelID snowflake.ID, fn func(Message) bool) error
}

// Store persists the cache between refreshes.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	// Replace swaps the whole persisted state for s in a single transaction.
	Replace(ctx context.Context, s *Snapshot) error
}

type Config struct {
	GuildID            snowflake.ID
	MaxConcurrentScans int
}

// Cache keeps per-user emoji and message counts of one guild.
type Cache struct {
	guildID  snowflake.ID
	maxScans int
	platform Platform
	store    Store
	running  atomic.Bool
}

func NewCache(cfg Config, platform Platform, store Store) *Cache {
	maxScans := cfg.MaxConcurrentScans
	if maxScans <= 0 {
		maxScans = defaultMaxConcurrentScans
	}
	return &Cache{
		guildID:  cfg.GuildID,
		maxScans: maxScans,
		platform: platform,
		store:    store,
	}
}

func (c *Cache) GuildID() snowflake.ID {
	return c.guildID
}

func (c *Cache) IsRunning() bool {
	return c.running.Load()
}

// Data returns the persisted counts without scanning.
func (c *Cache) Data(ctx context.Context) (*CacheData, error) {
	snapshot, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return snapshot.Data(), nil
}

// Refresh scans the guild for messages newer than the stored checkpoints and
// persists the merged counts. With fullRebuild all stored progress is discarded
// and every channel is read back to its first message.
func (c *Cache) Refresh(ctx context.Context, fullRebuild bool) (*CacheData, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer c.running.Store(false)

	refreshID := uuid.New()
	start := time.Now()
	slog.Info("ttc: refreshing emoji cache",
		slog.String("refresh.id", refreshID.String()),
		slog.Any("guild.id", c.guildID),
		slog.Bool("full", fullRebuild))

	data, err := c.refresh(ctx, fullRebuild, refreshID)
	if err != nil {
		slog.Error("ttc: error while refreshing emoji cache",
			slog.String("refresh.id", refreshID.String()),
			slog.Any("guild.id", c.guildID),
			tint.Err(err))
		return nil, err
	}
	slog.Info("ttc: emoji cache refreshed",
		slog.String("refresh.id", refreshID.String()),
		slog.Any("guild.id", c.guildID),
		slog.Int64("messages.total", data.TotalMessages()),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

func (c *Cache) refresh(ctx context.Context, fullRebuild bool, refreshID uuid.UUID) (*CacheData, error) {
	snapshot := NewSnapshot()
	if !fullRebuild {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load cache: %w", err)
		}
		snapshot = loaded
	}

	emojis, err := c.platform.Emojis(ctx, c.guildID)
	if err != nil {
		return nil, fmt.Errorf("list emojis: %w", err)
	}
	channels, err := c.platform.Channels(ctx, c.guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	deltas := make([]*Delta, len(channels))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.maxScans)
	for i, channelID := range channels {
		var prev *Checkpoint
		if cp, ok := snapshot.Progress[channelID]; ok {
			prev = &cp
		}
		eg.Go(func() error {
			delta, err := scanChannel(egCtx, c.platform, channelID, prev, emojis)
			if errors.Is(err, ErrChannelInaccessible) {
				slog.Warn("ttc: skipping channel without read access",
					slog.String("refresh.id", refreshID.String()),
					slog.Any("channel.id", channelID))
				return nil
			}
			if err != nil {
				return fmt.Errorf("scan channel %s: %w", channelID, err)
			}
			deltas[i] = delta
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, delta := range deltas {
		if delta != nil {
			snapshot.Merge(delta)
		}
	}

	guild, err := c.guildSnapshot(ctx, emojis)
	if err != nil {
		return nil, err
	}
	snapshot.Prune(guild)

	if err := c.store.Replace(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("persist cache: %w", err)
	}
	return snapshot.Data(), nil
}

// guildSnapshot fetches members and channels again since a scan can take a while.
func (c *Cache) guildSnapshot(ctx context.Context, emojis []Emoji) (GuildSnapshot, error) {
	members, err := c.platform.Members(ctx, c.guildID)
	if err != nil {
		return GuildSnapshot{}, fmt.Errorf("list members: %w", err)
	}
	channels, err := c.platform.Channels(ctx, c.guildID)
	if err != nil {
		return GuildSnapshot{}, fmt.Errorf("list channels: %w", err)
	}
	names := make([]string, len(emojis))
	for i, e := range emojis {
		names[i] = e.Name
	}
	return GuildSnapshot{
		Members:  toSet(members),
		Channels: toSet(channels),
		Emojis:   toSet(names),
	}, nil
}

func toSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
