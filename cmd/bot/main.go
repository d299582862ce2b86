package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/announcer"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/config"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/logging"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	store := storage.New(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, migrateCancel := context.WithTimeout(ctx, 10*time.Second)
	defer migrateCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Only sends messages, updates are never polled.
	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	ann := announcer.New(cfg, store, bot)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ann.Run(ctx)
	}()

	<-ctx.Done()

	logrus.Info("waiting for services to finish")
	wg.Wait()
}

func setupConfig() {
	viper.SetDefault("announce_interval", "1m")
	config.SetupCommon()
	viper.MustBindEnv("telegram_token")
	viper.MustBindEnv("announce_chat_id")
}
