package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"ttc-bot/pkg/stats"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"
)

const embedColor = 0x001BFF

var emojiMentionRegex = regexp.MustCompile(`^<a?:(\w+):\d+>$`)

func (h *Handler) HandleLeaderboardMessages(data discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	refresh, _ := data.OptBool("refresh")
	return h.leaderboard(event, refresh, func(d *stats.CacheData) discord.Embed {
		return messagesEmbed(d, h.Config.Leaderboard.Size)
	})
}

func (h *Handler) HandleLeaderboardEmojis(data discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	refresh, _ := data.OptBool("refresh")
	emoji := emojiName(data.String("emoji"))
	return h.leaderboard(event, refresh, func(d *stats.CacheData) discord.Embed {
		if emoji == "" {
			return emojisEmbed(d, h.Config.Leaderboard.Size)
		}
		return emojiUsersEmbed(d, emoji, h.Config.Leaderboard.Size)
	})
}

func (h *Handler) leaderboard(event *handler.CommandEvent, refresh bool, render func(*stats.CacheData) discord.Embed) error {
	if refresh && h.Bot.IsRefreshing() {
		return event.CreateMessage(discord.NewMessageCreate().WithEphemeral(true).WithContent(alreadyRunningMessage))
	}
	return h.deferred(event, false, func(ctx context.Context) discord.MessageUpdate {
		var (
			data *stats.CacheData
			err  error
		)
		if refresh {
			data, err = h.Bot.RefreshStats(ctx, false)
		} else {
			data, err = h.Bot.StatsData(ctx)
		}
		messageBuilder := discord.NewMessageUpdateBuilder()
		if errors.Is(err, stats.ErrAlreadyRunning) {
			return messageBuilder.SetContent(alreadyRunningMessage).Build()
		}
		if err != nil {
			slog.Error("ttc: error while loading leaderboard data", slog.Any("guild.id", h.Bot.Stats.GuildID()), tint.Err(err))
			return messageBuilder.SetContent("There was an error while loading the leaderboard.").Build()
		}
		return messageBuilder.SetEmbeds(render(data)).Build()
	})
}

// emojiName accepts a rendered emoji (<:name:id>), :name: or a bare name.
func emojiName(input string) string {
	input = strings.TrimSpace(input)
	if m := emojiMentionRegex.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return strings.Trim(input, ":")
}

func messagesEmbed(data *stats.CacheData, n int) discord.Embed {
	lines := make([]string, 0, n)
	for i, e := range data.TopMessages(n) {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s>: %d", i+1, e.UserID, e.Count))
	}
	return leaderboardEmbed("Message leaderboard", lines, "No messages counted yet.",
		fmt.Sprintf("Total messages: %d", data.TotalMessages()))
}

func emojisEmbed(data *stats.CacheData, n int) discord.Embed {
	lines := make([]string, 0, n)
	for i, e := range data.TopEmojis(n) {
		lines = append(lines, fmt.Sprintf("**%d.** `:%s:`: %d", i+1, e.Emoji, e.Count))
	}
	return leaderboardEmbed("Emoji leaderboard", lines, "No emojis counted yet.",
		fmt.Sprintf("Total emoji uses: %d", totalEmojiUses(data)))
}

func emojiUsersEmbed(data *stats.CacheData, emoji string, n int) discord.Embed {
	lines := make([]string, 0, n)
	for i, e := range data.TopEmojiUsers(emoji, n) {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s>: %d", i+1, e.UserID, e.Count))
	}
	return leaderboardEmbed(fmt.Sprintf("Top users of :%s:", emoji), lines, "Nobody has used this emoji yet.",
		fmt.Sprintf("Total uses: %d", data.TotalEmoji(emoji)))
}

func leaderboardEmbed(title string, lines []string, empty string, footer string) discord.Embed {
	description := empty
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}
	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetColor(embedColor).
		SetDescription(description).
		SetFooterText(footer).
		Build()
}
