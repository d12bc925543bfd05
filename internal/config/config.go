package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DiscordConfig — учётные данные основной платформы.
type DiscordConfig struct {
	Token   string `yaml:"token" json:"-"`
	GuildID string `yaml:"guild_id" json:"guild_id"`
	APIBase string `yaml:"api_base" json:"api_base,omitempty"`
}

// TelegramConfig — учётные данные резервной платформы. Пустые token/chat_id
// отключают резервный путь, это штатный режим, а не ошибка.
type TelegramConfig struct {
	Token   string `yaml:"token" json:"-"`
	ChatID  string `yaml:"chat_id" json:"chat_id"`
	APIBase string `yaml:"api_base" json:"api_base,omitempty"`
}

type Config struct {
	ListenAddr      string `yaml:"listen_addr" json:"listen_addr"`
	RegistryDSN     string `yaml:"registry_dsn" json:"registry_dsn"`
	ChunkSizeMB     int    `yaml:"chunk_size_mb" json:"chunk_size_mb"`
	ParallelSends   int    `yaml:"parallel_sends" json:"parallel_sends"`
	SendRetries     int    `yaml:"send_retries" json:"send_retries"`
	DownloadRetries int    `yaml:"download_retries" json:"download_retries"`
	RetryBaseDelayS int    `yaml:"retry_base_delay_s" json:"retry_base_delay_s"`
	SessionTTLMin   int    `yaml:"session_ttl_min" json:"session_ttl_min"`
	GCIntervalMin   int    `yaml:"gc_interval_min" json:"gc_interval_min"`
	ReadAhead       int    `yaml:"read_ahead" json:"read_ahead"`
	HTTPTimeoutS    int    `yaml:"http_timeout_s" json:"http_timeout_s"`
	RequirePrimary  bool   `yaml:"require_primary" json:"require_primary"`

	Discord  DiscordConfig  `yaml:"discord" json:"discord"`
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и дефолты.
// Отсутствующий файл не ошибка: всё можно задать окружением.
func Load() (*Config, error) {
	var c Config

	path := getenv("CONFIG_PATH", "./config.yaml")
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// ENV override
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("REGISTRY_DSN"); v != "" {
		c.RegistryDSN = v
	}
	if v := os.Getenv("CHUNK_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSizeMB = n
		}
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		c.Discord.GuildID = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.RegistryDSN == "" {
		c.RegistryDSN = "file://./data"
	}
	if c.ChunkSizeMB <= 0 {
		c.ChunkSizeMB = 8
	}
	if c.ParallelSends <= 0 {
		c.ParallelSends = 3
	}
	if c.SendRetries <= 0 {
		c.SendRetries = 3
	}
	if c.DownloadRetries <= 0 {
		c.DownloadRetries = 3
	}
	if c.RetryBaseDelayS <= 0 {
		c.RetryBaseDelayS = 2
	}
	if c.SessionTTLMin <= 0 {
		c.SessionTTLMin = 60
	}
	if c.GCIntervalMin <= 0 {
		c.GCIntervalMin = 10
	}
	if c.ReadAhead <= 0 {
		c.ReadAhead = 4
	}
	if c.HTTPTimeoutS <= 0 {
		c.HTTPTimeoutS = 600
	}
}

// BackupEnabled сообщает, сконфигурирована ли резервная платформа.
func (c *Config) BackupEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != ""
}

// ChunkSizeBytes возвращает размер части в байтах.
func (c *Config) ChunkSizeBytes() int64 {
	return int64(c.ChunkSizeMB) * 1024 * 1024
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

func (c *Config) GCInterval() time.Duration {
	return time.Duration(c.GCIntervalMin) * time.Minute
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayS) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutS) * time.Second
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
