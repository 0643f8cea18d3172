package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ttc-bot/pkg"
	"ttc-bot/pkg/config"
	"ttc-bot/pkg/db"
	"ttc-bot/pkg/handlers"
	"ttc-bot/pkg/platform"
	"ttc-bot/pkg/scheduler"
	"ttc-bot/pkg/snapshot"
	"ttc-bot/pkg/stats"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	slogmulti "github.com/samber/slog-multi"
)

var debugLogger *slog.Logger

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	err = sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.SentryDSN,
		Environment:   cfg.Environment,
		EnableTracing: false,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if cfg.IsProduction() { // only log events in prod
				return event
			}
			return nil
		},
	})
	if err != nil {
		panic(err)
	}

	defer sentry.Flush(2 * time.Second)

	fileWriter, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		panic(err)
	}
	defer fileWriter.Close()
	debugLogger = slog.New(slog.NewTextHandler(fileWriter, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	logger := slog.New(slogmulti.Fanout(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level: slog.LevelInfo,
		}),
		sentryslog.Option{EventLevel: []slog.Level{slog.LevelWarn, slog.LevelError}}.NewSentryHandler(context.Background())))
	slog.SetDefault(logger)

	slog.Info("starting the bot...", slog.String("disgo.version", disgo.Version))

	database := db.NewDB(pool)
	if err := database.Migrate(context.Background()); err != nil {
		panic(err)
	}

	b := &pkg.Bot{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		b.Snapshots = snapshot.New(rdb, cfg.Leaderboard.SnapshotTTL)
	} else {
		slog.Info("ttc: redis_url not set, leaderboards read from the database")
	}

	h := handlers.NewHandler(b, cfg)

	client, err := disgo.New(cfg.BotToken,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuildMessages, gateway.IntentMessageContent, gateway.IntentGuilds, gateway.IntentGuildMembers),
			gateway.WithPresenceOpts(gateway.WithWatchingActivity("emoji usage"))),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagChannels)),
		bot.WithEventListeners(h, &events.ListenerAdapter{
			OnGuildReady: func(ev *events.GuildReady) {
				debugLogger.Debug("ttc: guild ready", slog.Any("guild.id", ev.Guild.ID), slog.String("guild.name", ev.Guild.Name))
			},
		}))
	if err != nil {
		panic(err)
	}

	defer client.Close(context.TODO())

	b.Stats = stats.NewCache(stats.Config{
		GuildID:            cfg.GuildID,
		MaxConcurrentScans: cfg.Stats.MaxConcurrentScans,
	}, platform.New(client.Rest, cfg.Stats.PagesPerSecond), database)

	if _, err := client.Rest.SetGuildCommands(client.ApplicationID, cfg.GuildID, handlers.Commands); err != nil {
		slog.Error("ttc: error while registering commands", slog.Any("guild.id", cfg.GuildID), tint.Err(err))
	}

	if err := client.OpenGateway(context.TODO()); err != nil {
		panic(err)
	}

	s, err := scheduler.New(cfg.Stats.RefreshSchedule, b)
	if err != nil {
		panic(err)
	}
	s.Start(cfg.Stats.RefreshAtStartup)
	defer s.Stop()

	slog.Info("ttc bot is now running.", slog.Any("guild.id", cfg.GuildID))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sig
}
