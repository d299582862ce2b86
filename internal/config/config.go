package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	ListenAddr     string        `mapstructure:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	JWTSecret    string `mapstructure:"jwt_secret"`
	IdentityHost string `mapstructure:"identity_host"`

	TelegramToken    string        `mapstructure:"telegram_token"`
	AnnounceChatID   int64         `mapstructure:"announce_chat_id"`
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	return cfg
}

func SetupCommon() {
	viper.SetEnvPrefix("SKILLMATRIX")

	viper.MustBindEnv("postgres_dsn")
	viper.BindEnv("debug")
	viper.BindEnv("verbose")
	viper.BindEnv("log-level", "SKILLMATRIX_LOG_LEVEL")
	viper.BindEnv("log_format")
	viper.AutomaticEnv()
}
