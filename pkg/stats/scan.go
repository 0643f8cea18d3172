package stats

import (
	"context"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Emoji struct {
	ID       snowflake.ID
	Name     string
	Animated bool
}

// Literal is how the emoji appears in message content.
func (e Emoji) Literal() string {
	prefix := "<:"
	if e.Animated {
		prefix = "<a:"
	}
	return prefix + e.Name + ":" + e.ID.String() + ">"
}

type Message struct {
	ID        snowflake.ID
	CreatedAt time.Time
	AuthorID  snowflake.ID
	AuthorBot bool
	Content   string
}

// reached reports whether m is at or behind the checkpoint. Deleted checkpoint
// messages are covered by the id and timestamp comparisons.
func (c Checkpoint) reached(m Message) bool {
	return m.ID <= c.MessageID || m.CreatedAt.Unix() < c.Timestamp
}

// scanChannel walks a channel from its newest message back to prev, or to the
// start of the history when prev is nil.
func scanChannel(ctx context.Context, platform Platform, channelID snowflake.ID, prev *Checkpoint, emojis []Emoji) (*Delta, error) {
	delta := newDelta(channelID)
	err := platform.Messages(ctx, channelID, func(m Message) bool {
		if prev != nil && prev.reached(m) {
			return false
		}
		if delta.Checkpoint == nil {
			delta.Checkpoint = &Checkpoint{MessageID: m.ID, Timestamp: m.CreatedAt.Unix()}
		}
		if m.AuthorBot {
			return true
		}
		author := User(m.AuthorID)
		delta.MessageCounts[author]++
		delta.MessageCounts[Global]++
		for _, emoji := range emojis {
			n := int64(strings.Count(m.Content, emoji.Literal()))
			if n == 0 {
				continue
			}
			delta.EmojiCounts[EmojiKey{Scope: author, Emoji: emoji.Name}] += n
			delta.EmojiCounts[EmojiKey{Scope: Global, Emoji: emoji.Name}] += n
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return delta, nil
}
