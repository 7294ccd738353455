package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Moderation ModerationConfig `yaml:"moderation"`
	Voice      VoiceConfig      `yaml:"voice"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env-default:""`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
}

type CacheConfig struct {
	Path     string `yaml:"path" env-default:""`
	InMemory bool   `yaml:"in_memory" env-default:"false"`
}

type ModerationConfig struct {
	Enabled      bool   `yaml:"enabled" env-default:"true"`
	OpenAIAPIKey string `yaml:"openai_api_key" env:"OPENAI_API_KEY" env-default:""`
	Model        string `yaml:"model" env-default:""`
}

type VoiceConfig struct {
	SynthesisURL    string        `yaml:"synthesis_url" env:"SYNTHESIS_URL" env-default:""`
	SynthesisAPIKey string        `yaml:"synthesis_api_key" env:"SYNTHESIS_API_KEY" env-default:""`
	TokenSecret     string        `yaml:"token_secret" env:"CHANNEL_TOKEN_SECRET" env-default:""`
	TokenTTL        time.Duration `yaml:"token_ttl" env-default:"4h"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Cache.Path == "" && !c.Cache.InMemory {
		c.Cache.Path = "data/cache"
	}
	if c.Voice.TokenTTL <= 0 {
		c.Voice.TokenTTL = 4 * time.Hour
	}
}
