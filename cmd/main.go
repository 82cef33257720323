package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/skulebot/core/internal/config"
	"github.com/skulebot/core/internal/handlers"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
	"github.com/skulebot/core/pkg/database"
	"github.com/skulebot/core/pkg/scheduler"
	"github.com/skulebot/core/pkg/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	if err := db.Seed(); err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}

	bot, err := telegram.NewBot(cfg.BotToken, logger)
	if err != nil {
		logger.Fatal("failed to connect to telegram", zap.Error(err))
	}
	logger.Info("bot connected", zap.String("username", bot.Username()))

	sched := scheduler.New(logger)
	sched.Start()
	defer sched.Stop()

	notify := services.NewNotifyService(db.DB, bot, sched, cfg.ErrorChannelChatID, logger)
	lms := services.NewLMSClient(cfg.LMSBaseURL, cfg.LMSToken, logger)

	dispatcher := router.NewDispatcher(db.DB, bot, sched, logger,
		cfg.RootIDs, cfg.ErrorChannelChatID)
	handlers.New(cfg, notify, lms).Register(dispatcher)

	// Deadline sweeps, morning and evening; together they cover every
	// assignment due 36-48 hours out exactly once.
	if err := sched.RunDaily(8, 0, "DEADLINE_SWEEP_MORNING", notify.ScheduleDeadlineReminders); err != nil {
		logger.Fatal("failed to register deadline sweep", zap.Error(err))
	}
	if err := sched.RunDaily(20, 0, "DEADLINE_SWEEP_EVENING", notify.ScheduleDeadlineReminders); err != nil {
		logger.Fatal("failed to register deadline sweep", zap.Error(err))
	}

	if cfg.IsProduction() {
		updates := make(chan tgbotapi.Update, 100)
		go dispatcher.Run(updates)
		if err := bot.RunWebhook(cfg.WebhookURL, cfg.WebhookSecretToken, cfg.Port, updates); err != nil {
			logger.Fatal("webhook listener failed", zap.Error(err))
		}
		return
	}

	logger.Info("running in long-poll mode")
	dispatcher.Run(bot.Updates())
}
