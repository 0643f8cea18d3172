package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ttc-bot/pkg/stats"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/lmittmann/tint"
)

const alreadyRunningMessage = "The cache is already being updated, try again later."

func (h *Handler) HandleCacheRefresh(_ discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	return h.handleRefresh(event, false)
}

func (h *Handler) HandleCacheRebuild(_ discord.SlashCommandInteractionData, event *handler.CommandEvent) error {
	return h.handleRefresh(event, true)
}

func (h *Handler) handleRefresh(event *handler.CommandEvent, fullRebuild bool) error {
	if h.Bot.IsRefreshing() {
		return event.CreateMessage(discord.NewMessageCreate().WithEphemeral(true).WithContent(alreadyRunningMessage))
	}
	return h.deferred(event, true, func(ctx context.Context) discord.MessageUpdate {
		start := time.Now()
		data, err := h.Bot.RefreshStats(ctx, fullRebuild)
		messageBuilder := discord.NewMessageUpdateBuilder()
		if errors.Is(err, stats.ErrAlreadyRunning) {
			return messageBuilder.SetContent(alreadyRunningMessage).Build()
		}
		if err != nil {
			return messageBuilder.SetContentf("There was an error while refreshing the cache: %v", err).Build()
		}
		return messageBuilder.SetContent(refreshSummary(data, time.Since(start), fullRebuild)).Build()
	})
}

// deferred acknowledges the interaction and edits the reply with the result of fn
// once it returns. Scans take far longer than the interaction deadline.
func (h *Handler) deferred(event *handler.CommandEvent, ephemeral bool, fn func(ctx context.Context) discord.MessageUpdate) error {
	if err := event.DeferCreateMessage(ephemeral); err != nil {
		return err
	}
	go func() {
		update := fn(context.Background())
		if _, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), update); err != nil {
			slog.Error("ttc: error while updating interaction response",
				slog.Any("interaction.id", event.ID()),
				tint.Err(err))
		}
	}()
	return nil
}

func refreshSummary(data *stats.CacheData, took time.Duration, fullRebuild bool) string {
	action := "refreshed"
	if fullRebuild {
		action = "rebuilt"
	}
	return fmt.Sprintf("Cache %s in %s: **%d** messages and **%d** emoji uses counted.",
		action, took.Round(time.Millisecond), data.TotalMessages(), totalEmojiUses(data))
}

func totalEmojiUses(data *stats.CacheData) int64 {
	var total int64
	for _, e := range data.TopEmojis(0) {
		total += e.Count
	}
	return total
}
