package handlers

import (
	"log/slog"

	"ttc-bot/pkg"
	"ttc-bot/pkg/config"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/omit"
	"github.com/lmittmann/tint"
)

var adminPermissions = discord.PermissionAdministrator

var Commands = []discord.ApplicationCommandCreate{
	discord.SlashCommandCreate{
		Name:                     "cache",
		Description:              "Manage the emoji statistics cache",
		DefaultMemberPermissions: omit.New(&adminPermissions),
		Contexts:                 []discord.InteractionContextType{discord.InteractionContextTypeGuild},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "refresh",
				Description: "Scan messages sent since the last refresh",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "rebuild",
				Description: "Drop the cache and scan every channel from the beginning",
			},
		},
	},
	discord.SlashCommandCreate{
		Name:        "leaderboard",
		Description: "Show message and emoji leaderboards",
		Contexts:    []discord.InteractionContextType{discord.InteractionContextTypeGuild},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "emojis",
				Description: "Most used server emojis, or the top users of one emoji",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "emoji",
						Description: "Emoji to rank users by",
					},
					discord.ApplicationCommandOptionBool{
						Name:        "refresh",
						Description: "Refresh the cache first",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "messages",
				Description: "Members with the most messages",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "refresh",
						Description: "Refresh the cache first",
					},
				},
			},
		},
	},
}

func NewHandler(b *pkg.Bot, c *config.Config) *Handler {
	mux := handler.New()
	mux.Error(func(e *handler.InteractionEvent, err error) {
		i := e.Interaction.(discord.ApplicationCommandInteraction)
		slog.Error("ttc: error while handling a command", slog.String("command.name", i.Data.CommandName()), tint.Err(err))
		_ = e.Respond(discord.InteractionResponseTypeCreateMessage, discord.NewMessageCreate().
			WithContentf("There was an error while handling the command: %v", err).
			WithEphemeral(true))
	})
	handlers := &Handler{
		Bot:    b,
		Config: c,
		Router: mux,
	}
	handlers.Route("/cache", func(r handler.Router) {
		r.SlashCommand("/refresh", handlers.HandleCacheRefresh)
		r.SlashCommand("/rebuild", handlers.HandleCacheRebuild)
	})
	handlers.Route("/leaderboard", func(r handler.Router) {
		r.SlashCommand("/emojis", handlers.HandleLeaderboardEmojis)
		r.SlashCommand("/messages", handlers.HandleLeaderboardMessages)
	})
	return handlers
}

type Handler struct {
	Bot    *pkg.Bot
	Config *config.Config
	handler.Router
}
