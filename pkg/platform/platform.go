package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"ttc-bot/pkg/stats"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

const (
	messagesPageSize = 100
	membersPageSize  = 1000
)

var textChannelTypes = []discord.ChannelType{
	discord.ChannelTypeGuildText,
	discord.ChannelTypeGuildNews,
	discord.ChannelTypeGuildVoice,
	discord.ChannelTypeGuildStageVoice,
}

// Rest is the part of the disgo REST client the cache needs.
type Rest interface {
	GetEmojis(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Emoji, error)
	GetGuildChannels(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.GuildChannel, error)
	GetMembers(guildID snowflake.ID, limit int, after snowflake.ID, opts ...rest.RequestOpt) ([]discord.Member, error)
	GetMessagesPage(channelID snowflake.ID, startID snowflake.ID, limit int, opts ...rest.RequestOpt) rest.Page[discord.Message]
}

// Discord reads guild data over REST. Message pages are paced by a shared limiter
// on top of the rate limits disgo already enforces, so a refresh leaves room for
// command traffic.
type Discord struct {
	rest    Rest
	limiter *rate.Limiter
}

func New(r Rest, pagesPerSecond float64) *Discord {
	limit := rate.Inf
	if pagesPerSecond > 0 {
		limit = rate.Limit(pagesPerSecond)
	}
	return &Discord{
		rest:    r,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (d *Discord) Emojis(ctx context.Context, guildID snowflake.ID) ([]stats.Emoji, error) {
	emojis, err := d.rest.GetEmojis(guildID, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]stats.Emoji, 0, len(emojis))
	for _, e := range emojis {
		out = append(out, stats.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated})
	}
	return out, nil
}

func (d *Discord) Channels(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error) {
	channels, err := d.rest.GetGuildChannels(guildID, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	var ids []snowflake.ID
	for _, c := range channels {
		if slices.Contains(textChannelTypes, c.Type()) {
			ids = append(ids, c.ID())
		}
	}
	return ids, nil
}

func (d *Discord) Members(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error) {
	var (
		ids   []snowflake.ID
		after snowflake.ID
	)
	for {
		members, err := d.rest.GetMembers(guildID, membersPageSize, after, rest.WithCtx(ctx))
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			ids = append(ids, m.User.ID)
		}
		if len(members) < membersPageSize {
			return ids, nil
		}
		after = members[len(members)-1].User.ID
	}
}

func (d *Discord) Messages(ctx context.Context, channelID snowflake.ID, fn func(stats.Message) bool) error {
	page := d.rest.GetMessagesPage(channelID, 0, messagesPageSize, rest.WithCtx(ctx))
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		if !page.Previous() {
			if errors.Is(page.Err, rest.ErrNoMorePages) {
				return nil
			}
			if isForbidden(page.Err) {
				return fmt.Errorf("%w: %w", stats.ErrChannelInaccessible, page.Err)
			}
			return page.Err
		}
		for _, m := range page.Items {
			if !fn(toMessage(m)) {
				return nil
			}
		}
		if len(page.Items) < messagesPageSize {
			return nil
		}
	}
}

func toMessage(m discord.Message) stats.Message {
	return stats.Message{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	}
}

func isForbidden(err error) bool {
	var restErr *rest.Error
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}
