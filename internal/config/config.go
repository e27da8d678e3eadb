package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"beatwise"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env-default:"false"`
	Addr     string        `yaml:"addr" env-default:"127.0.0.1:6379"`
	Password string        `yaml:"password" env-default:""`
	DB       int           `yaml:"db" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env-default:"10s"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled" env-default:"false"`
	ApiKey      string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	GroupID     int64  `yaml:"group_id" env-default:"0"`
	AdminChatID int64  `yaml:"admin_chat_id" env-default:"0"`
}

type DiscordConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	BotToken string `yaml:"bot_token" env:"DISCORD_BOT_TOKEN" env-default:""`
	GuildID  string `yaml:"guild_id" env:"DISCORD_GUILD_ID" env-default:""`
	BaseURL  string `yaml:"base_url" env-default:"https://discord.com/api/v10"`
}

type RewardsConfig struct {
	Referral int64            `yaml:"referral" env-default:"100"`
	Tasks    map[string]int64 `yaml:"tasks"`
}

type LedgerConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"3"`
	RetryDelay  time.Duration `yaml:"retry_delay" env-default:"10ms"`
}

type VerifierConfig struct {
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type Config struct {
	Listen     Listen         `yaml:"listen"`
	Mongo      MongoConfig    `yaml:"mongo"`
	Redis      RedisConfig    `yaml:"redis"`
	Telegram   TelegramConfig `yaml:"telegram"`
	Discord    DiscordConfig  `yaml:"discord"`
	Rewards    RewardsConfig  `yaml:"rewards"`
	Ledger     LedgerConfig   `yaml:"ledger"`
	Verifier   VerifierConfig `yaml:"verifier"`
	AdminToken string         `yaml:"admin_token" env:"ADMIN_TOKEN" env-default:""`
	Env        string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
