package stats

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			perm := append(append(append([]int{}, p[:i]...), n-1), p[i:]...)
			out = append(out, perm)
		}
	}
	return out
}

func TestMergeIsOrderIndependent(t *testing.T) {
	deltas := []*Delta{
		{
			ChannelID:     channelA,
			Checkpoint:    &Checkpoint{MessageID: 300, Timestamp: 3},
			EmojiCounts:   map[EmojiKey]int64{{Scope: User(user1), Emoji: "foo"}: 2, {Scope: Global, Emoji: "foo"}: 2},
			MessageCounts: map[Scope]int64{User(user1): 3, Global: 3},
		},
		{
			ChannelID:     channelB,
			Checkpoint:    &Checkpoint{MessageID: 200, Timestamp: 2},
			EmojiCounts:   map[EmojiKey]int64{{Scope: User(user2), Emoji: "bar"}: 1, {Scope: Global, Emoji: "bar"}: 1},
			MessageCounts: map[Scope]int64{User(user2): 1, Global: 1},
		},
		{
			ChannelID:     30,
			EmojiCounts:   map[EmojiKey]int64{{Scope: User(user1), Emoji: "foo"}: 5, {Scope: Global, Emoji: "foo"}: 5},
			MessageCounts: map[Scope]int64{User(user1): 7, Global: 7},
		},
	}

	var want *Snapshot
	for _, order := range permutations(len(deltas)) {
		got := NewSnapshot()
		got.MessageCounts[Global] = 10
		got.Progress[30] = Checkpoint{MessageID: 100, Timestamp: 1}
		for _, i := range order {
			got.Merge(deltas[i])
		}
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}

	require.NotNil(t, want)
	assert.Equal(t, int64(21), want.MessageCounts[Global])
	assert.Equal(t, int64(7), want.EmojiCounts[EmojiKey{Scope: User(user1), Emoji: "foo"}])
	// a delta without a checkpoint keeps the previous one
	assert.Equal(t, Checkpoint{MessageID: 100, Timestamp: 1}, want.Progress[30])
}

func TestPruneKeepsGlobalTotals(t *testing.T) {
	s := NewSnapshot()
	s.MessageCounts[Global] = 4
	s.MessageCounts[User(user1)] = 3
	s.MessageCounts[User(user2)] = 1
	s.EmojiCounts[EmojiKey{Scope: Global, Emoji: "foo"}] = 2
	s.EmojiCounts[EmojiKey{Scope: User(user1), Emoji: "foo"}] = 2
	s.EmojiCounts[EmojiKey{Scope: Global, Emoji: "gone"}] = 9
	s.Progress[channelA] = Checkpoint{MessageID: 1}
	s.Progress[channelB] = Checkpoint{MessageID: 2}

	s.Prune(GuildSnapshot{
		Members:  map[snowflake.ID]struct{}{user2: {}},
		Channels: map[snowflake.ID]struct{}{channelA: {}},
		Emojis:   map[string]struct{}{"foo": {}},
	})

	assert.Equal(t, map[Scope]int64{Global: 4, User(user2): 1}, s.MessageCounts)
	assert.Equal(t, map[EmojiKey]int64{{Scope: Global, Emoji: "foo"}: 2}, s.EmojiCounts)
	assert.Equal(t, map[snowflake.ID]Checkpoint{channelA: {MessageID: 1}}, s.Progress)
}

func TestDataIsDetachedFromSnapshot(t *testing.T) {
	s := NewSnapshot()
	s.MessageCounts[Global] = 1
	data := s.Data()

	s.MessageCounts[Global] = 2
	assert.Equal(t, int64(1), data.TotalMessages())
}

func TestLeaderboards(t *testing.T) {
	data := &CacheData{
		UserMessageCounts: map[Scope]int64{Global: 10, User(3): 5, User(1): 3, User(2): 3},
		UserEmojiCounts: map[EmojiKey]int64{
			{Scope: Global, Emoji: "foo"}:  4,
			{Scope: Global, Emoji: "bar"}:  6,
			{Scope: User(1), Emoji: "foo"}: 1,
			{Scope: User(2), Emoji: "foo"}: 3,
			{Scope: User(2), Emoji: "bar"}: 6,
		},
	}

	assert.Equal(t, []Entry{{UserID: 3, Count: 5}, {UserID: 1, Count: 3}}, data.TopMessages(2))
	assert.Len(t, data.TopMessages(0), 3)
	assert.Equal(t, []Entry{{UserID: 2, Emoji: "foo", Count: 3}, {UserID: 1, Emoji: "foo", Count: 1}}, data.TopEmojiUsers("foo", 10))
	assert.Equal(t, []Entry{{Emoji: "bar", Count: 6}, {Emoji: "foo", Count: 4}}, data.TopEmojis(10))
	assert.Empty(t, data.TopEmojiUsers("missing", 10))
}

func TestScope(t *testing.T) {
	assert.True(t, Global.IsGlobal())
	_, ok := Global.UserID()
	assert.False(t, ok)

	id, ok := User(42).UserID()
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)
	assert.NotEqual(t, Global, User(0))
	assert.Equal(t, "user:42", User(42).String())
	assert.Equal(t, "global", Global.String())
}

func TestEmojiLiteral(t *testing.T) {
	assert.Equal(t, "<:foo:500>", Emoji{ID: 500, Name: "foo"}.Literal())
	assert.Equal(t, "<a:party:7>", Emoji{ID: 7, Name: "party", Animated: true}.Literal())
}
