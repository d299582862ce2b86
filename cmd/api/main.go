package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/api"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/authutil"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/config"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/directory"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/logging"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store := storage.New(db)

	initCtx, migrateCancel := context.WithTimeout(ctx, 10*time.Second)
	defer migrateCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	var resolver authutil.Resolver
	switch {
	case cfg.JWTSecret != "":
		resolver = authutil.NewJWTResolver(cfg.JWTSecret)
	case cfg.IdentityHost != "":
		resolver = authutil.NewUserInfoResolver("https://" + cfg.IdentityHost)
	default:
		logrus.Fatal("Either jwt_secret or identity_host must be set")
	}

	service := api.NewService(cfg, store, directory.New(store), resolver)
	e := service.NewServer()

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	logrus.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shutdown server: %v", err)
	}
}

func setupConfig() {
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("request_timeout", "10s")
	config.SetupCommon()
	viper.BindEnv("jwt_secret")
	viper.BindEnv("identity_host")
}
