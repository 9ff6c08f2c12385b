package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/ranks"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
)

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	SizeMB  int  `mapstructure:"sizeMB" validate:"min:0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the full static configuration, loaded once at process start.
// Secrets come from the environment (optionally a .env file); everything
// else from a yaml file with compiled-in defaults.
type Config struct {
	DiscordToken string `validate:"required"`
	DatabaseDSN  string

	Prefix   string            `mapstructure:"prefix" validate:"required"`
	DataFile string            `mapstructure:"dataFile" validate:"required"`
	LogLevel string            `mapstructure:"logLevel" validate:"required|in:trace,debug,info,warn,error"`
	Subjects []subject.Subject `mapstructure:"subjects"`
	Tiers    []models.Tier     `mapstructure:"tiers"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
}

// Load reads .env, the yaml config and the environment. The yaml file is
// optional; a missing file means defaults.
func Load() (*Config, error) {
	// .env file is optional, continue with environment variables.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()
	filename := filepath.Base(path)
	v.AddConfigPath(filepath.Dir(path))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("prefix", "!")
	v.SetDefault("dataFile", "tempo.json")
	v.SetDefault("logLevel", "info")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.sizeMB", 8)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9120")

	v.BindEnv("logLevel", "ESTUDO_LOG_LEVEL")
	v.BindEnv("dataFile", "ESTUDO_DATA_FILE")
	v.BindEnv("metrics.enabled", "ESTUDO_METRICS_ENABLED")
	v.BindEnv("metrics.addr", "ESTUDO_METRICS_ADDR")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	conf.DiscordToken = os.Getenv("DISCORD_TOKEN")
	conf.DatabaseDSN = os.Getenv("DATABASE_DSN")

	if len(conf.Subjects) == 0 {
		conf.Subjects = subject.Defaults()
	}
	if len(conf.Tiers) == 0 {
		conf.Tiers = ranks.Defaults()
	}

	val := validate.Struct(&conf)
	if !val.Validate() {
		return nil, val.Errors.OneError()
	}
	if err := checkSubjects(conf.Subjects); err != nil {
		return nil, err
	}
	// The tier ladder itself is validated by ranks.NewLadder at wiring time.

	return &conf, nil
}

func checkSubjects(subjects []subject.Subject) error {
	seen := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		if s.Key == "" {
			return fmt.Errorf("subject with empty key")
		}
		if seen[s.Key] {
			return fmt.Errorf("duplicate subject key %q", s.Key)
		}
		if len(s.Aliases) == 0 {
			return fmt.Errorf("subject %q has no aliases", s.Key)
		}
		seen[s.Key] = true
	}
	return nil
}
