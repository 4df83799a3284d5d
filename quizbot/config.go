package quizbot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Bot     BotConfig     `toml:"bot"`
	DB      DBConfig      `toml:"db"`
	Archive ArchiveConfig `toml:"archive"`
}

type BotConfig struct {
	DevGuilds    []snowflake.ID `toml:"dev_guilds"`
	Token        string         `toml:"token"`
	SessionCache int            `toml:"session_cache"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

// ArchiveConfig points at the S3-compatible bucket that keeps rating
// exports. Disabled when no bucket is set.
type ArchiveConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
}

func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}
