package stats

import (
	"cmp"
	"maps"
	"slices"

	"github.com/disgoorg/snowflake/v2"
)

// Checkpoint is the newest message of a channel already folded into the counters.
type Checkpoint struct {
	MessageID snowflake.ID
	Timestamp int64 // unix seconds
}

// Snapshot is the full persisted state of the cache.
type Snapshot struct {
	EmojiCounts   map[EmojiKey]int64
	MessageCounts map[Scope]int64
	Progress      map[snowflake.ID]Checkpoint
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		EmojiCounts:   make(map[EmojiKey]int64),
		MessageCounts: make(map[Scope]int64),
		Progress:      make(map[snowflake.ID]Checkpoint),
	}
}

// Delta holds what a single channel scan found.
type Delta struct {
	ChannelID     snowflake.ID
	Checkpoint    *Checkpoint // nil when the channel had nothing new
	EmojiCounts   map[EmojiKey]int64
	MessageCounts map[Scope]int64
}

func newDelta(channelID snowflake.ID) *Delta {
	return &Delta{
		ChannelID:     channelID,
		EmojiCounts:   make(map[EmojiKey]int64),
		MessageCounts: make(map[Scope]int64),
	}
}

// Merge adds the counts of d to s and moves the channel checkpoint forward.
func (s *Snapshot) Merge(d *Delta) {
	for k, n := range d.EmojiCounts {
		s.EmojiCounts[k] += n
	}
	for k, n := range d.MessageCounts {
		s.MessageCounts[k] += n
	}
	if d.Checkpoint != nil {
		s.Progress[d.ChannelID] = *d.Checkpoint
	}
}

// GuildSnapshot is the live state of a guild used to drop stale entries.
type GuildSnapshot struct {
	Members  map[snowflake.ID]struct{}
	Channels map[snowflake.ID]struct{}
	Emojis   map[string]struct{}
}

func (g GuildSnapshot) isMember(scope Scope) bool {
	id, ok := scope.UserID()
	if !ok {
		return true
	}
	_, ok = g.Members[id]
	return ok
}

// Prune removes counters of users that left, emojis that were deleted and
// checkpoints of channels that no longer exist. Global totals are kept as they are.
func (s *Snapshot) Prune(g GuildSnapshot) {
	maps.DeleteFunc(s.EmojiCounts, func(k EmojiKey, _ int64) bool {
		if _, ok := g.Emojis[k.Emoji]; !ok {
			return true
		}
		return !g.isMember(k.Scope)
	})
	maps.DeleteFunc(s.MessageCounts, func(k Scope, _ int64) bool {
		return !g.isMember(k)
	})
	maps.DeleteFunc(s.Progress, func(id snowflake.ID, _ Checkpoint) bool {
		_, ok := g.Channels[id]
		return !ok
	})
}

// Data returns the read-only result handed to callers.
func (s *Snapshot) Data() *CacheData {
	return &CacheData{
		UserEmojiCounts:   maps.Clone(s.EmojiCounts),
		UserMessageCounts: maps.Clone(s.MessageCounts),
	}
}

// CacheData is the result of a refresh. It must not be modified.
type CacheData struct {
	UserEmojiCounts   map[EmojiKey]int64
	UserMessageCounts map[Scope]int64
}

type Entry struct {
	UserID snowflake.ID
	Emoji  string
	Count  int64
}

func (d *CacheData) TotalMessages() int64 {
	return d.UserMessageCounts[Global]
}

func (d *CacheData) TotalEmoji(emoji string) int64 {
	return d.UserEmojiCounts[EmojiKey{Scope: Global, Emoji: emoji}]
}

// TopMessages returns the n members with the most messages.
func (d *CacheData) TopMessages(n int) []Entry {
	var entries []Entry
	for scope, count := range d.UserMessageCounts {
		if id, ok := scope.UserID(); ok {
			entries = append(entries, Entry{UserID: id, Count: count})
		}
	}
	return top(entries, n)
}

// TopEmojiUsers returns the n members who used emoji the most.
func (d *CacheData) TopEmojiUsers(emoji string, n int) []Entry {
	var entries []Entry
	for key, count := range d.UserEmojiCounts {
		if key.Emoji != emoji {
			continue
		}
		if id, ok := key.Scope.UserID(); ok {
			entries = append(entries, Entry{UserID: id, Emoji: emoji, Count: count})
		}
	}
	return top(entries, n)
}

// TopEmojis returns the n most used emojis of the guild.
func (d *CacheData) TopEmojis(n int) []Entry {
	var entries []Entry
	for key, count := range d.UserEmojiCounts {
		if key.Scope.IsGlobal() {
			entries = append(entries, Entry{Emoji: key.Emoji, Count: count})
		}
	}
	return top(entries, n)
}

func top(entries []Entry, n int) []Entry {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.Emoji, b.Emoji)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
