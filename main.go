package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"

	"github.com/maxter9595/O2RusQuizBot/quizbot"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
	"github.com/maxter9595/O2RusQuizBot/quizbot/handlers"
	"github.com/maxter9595/O2RusQuizBot/quizbot/logger"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/services"
	"github.com/maxter9595/O2RusQuizBot/quizbot/workflow"
)

var (
	version = "dev"
	commit  = "unknown"
)

const defaultSessionCache = 1024

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := quizbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	logger.LogSystem("Starting O2RusQuizBot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database connected",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	b := quizbot.New(*cfg, version, commit)
	b.DB = db
	b.ParticipantRepo = repositories.NewParticipantRepository(db.BunDB())
	b.QuestionRepo = repositories.NewQuestionRepository(db.BunDB())
	b.PointEventRepo = repositories.NewPointEventRepository(db.BunDB())
	b.StandingsRepo = repositories.NewStandingsRepository(db.BunDB())

	b.Engine = ranking.NewEngine(b.ParticipantRepo, b.QuestionRepo, b.PointEventRepo)
	b.Projector = ranking.NewProjector(b.Engine, b.QuestionRepo, b.StandingsRepo)

	sessionCache := cfg.Bot.SessionCache
	if sessionCache <= 0 {
		sessionCache = defaultSessionCache
	}
	b.Sessions, err = workflow.NewSessions(sessionCache)
	if err != nil {
		slog.Error("Failed to create session store", slog.Any("error", err))
		os.Exit(-1)
	}

	b.StandingsImages = services.NewStandingsImageService()

	if cfg.Archive.Enabled() {
		b.ExportArchiveService, err = services.NewExportArchiveService(
			cfg.Archive.Key,
			cfg.Archive.Secret,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.Bucket,
			cfg.Archive.Prefix,
		)
		if err != nil {
			slog.Error("Failed to create export archive service", slog.Any("error", err))
			os.Exit(-1)
		}
	}

	router := handlers.NewRouter(
		b.Sessions,
		b.ParticipantRepo,
		b.QuestionRepo,
		b.PointEventRepo,
		b.StandingsRepo,
		b.Projector,
		b.Engine,
		b.StandingsImages,
		b.ExportArchiveService,
	)

	if err = b.SetupBot(
		bot.NewListenerFunc(b.OnReady),
		handlers.NewMessageListener(router, cfg.Bot.DevGuilds),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
