package quizbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/services"
	"github.com/maxter9595/O2RusQuizBot/quizbot/workflow"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type Bot struct {
	Cfg     Config
	Client  bot.Client
	Version string
	Commit  string

	DB                   *database.DB
	ParticipantRepo      repositories.ParticipantRepository
	QuestionRepo         repositories.QuestionRepository
	PointEventRepo       repositories.PointEventRepository
	StandingsRepo        repositories.StandingsRepository
	Engine               *ranking.Engine
	Projector            *ranking.Projector
	Sessions             *workflow.Sessions
	StandingsImages      *services.StandingsImageService
	ExportArchiveService *services.ExportArchiveService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentDirectMessages,
			gateway.IntentMessageContent,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("O2RusQuizBot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("викторина"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
