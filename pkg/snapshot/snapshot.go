package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ttc-bot/pkg/stats"

	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ttc:stats:"

var ErrMiss = errors.New("snapshot not cached")

// Client is the subset of the go-redis client the store uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store keeps the last refreshed CacheData of a guild in Redis so leaderboards
// don't have to read the whole database.
type Store struct {
	client Client
	ttl    time.Duration
}

func New(client Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(guildID snowflake.ID) string {
	return keyPrefix + guildID.String()
}

type entry struct {
	UserID snowflake.ID `json:"user_id,omitempty"`
	Global bool         `json:"global,omitempty"`
	Emoji  string       `json:"emoji,omitempty"`
	Count  int64        `json:"count"`
}

type payload struct {
	Emojis   []entry `json:"emojis"`
	Messages []entry `json:"messages"`
}

func (s *Store) Save(ctx context.Context, guildID snowflake.ID, data *stats.CacheData) error {
	b, err := json.Marshal(encode(data))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.client.Set(ctx, key(guildID), b, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, guildID snowflake.ID) error {
	return s.client.Del(ctx, key(guildID)).Err()
}

// Load returns ErrMiss when nothing is cached for the guild or the entry expired.
func (s *Store) Load(ctx context.Context, guildID snowflake.ID) (*stats.CacheData, error) {
	b, err := s.client.Get(ctx, key(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return decode(p), nil
}

func newEntry(scope stats.Scope, emoji string, count int64) entry {
	e := entry{Emoji: emoji, Count: count}
	if id, ok := scope.UserID(); ok {
		e.UserID = id
	} else {
		e.Global = true
	}
	return e
}

func (e entry) scope() stats.Scope {
	if e.Global {
		return stats.Global
	}
	return stats.User(e.UserID)
}

func encode(data *stats.CacheData) payload {
	p := payload{
		Emojis:   make([]entry, 0, len(data.UserEmojiCounts)),
		Messages: make([]entry, 0, len(data.UserMessageCounts)),
	}
	for k, n := range data.UserEmojiCounts {
		p.Emojis = append(p.Emojis, newEntry(k.Scope, k.Emoji, n))
	}
	for scope, n := range data.UserMessageCounts {
		p.Messages = append(p.Messages, newEntry(scope, "", n))
	}
	return p
}

func decode(p payload) *stats.CacheData {
	data := &stats.CacheData{
		UserEmojiCounts:   make(map[stats.EmojiKey]int64, len(p.Emojis)),
		UserMessageCounts: make(map[stats.Scope]int64, len(p.Messages)),
	}
	for _, e := range p.Emojis {
		data.UserEmojiCounts[stats.EmojiKey{Scope: e.scope(), Emoji: e.Emoji}] = e.Count
	}
	for _, e := range p.Messages {
		data.UserMessageCounts[e.scope()] = e.Count
	}
	return data
}
