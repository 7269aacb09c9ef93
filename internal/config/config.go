package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	AppURL     string `mapstructure:"app_url"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	NATSURL string `mapstructure:"nats_url"`
	DBPath  string `mapstructure:"db_path"`
	ExecDir string `mapstructure:"exec_dir"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("app_url", "http://localhost:5000")
	v.SetDefault("static_path", "./web")
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("db_path", "./kodesesh.db")
	v.SetDefault("exec_dir", os.TempDir())
	v.SetDefault("read_limit", 262144)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		// An empty key would let anyone forge cookies. The generated one is
		// ephemeral, so cookie sessions reset on restart until a secret is set.
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Msg("no secret configured, generated an ephemeral one")
	}
	return &cfg, nil
}
