// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	AdminKey  string `yaml:"admin_key"`
	JWTSecret string `yaml:"jwt_secret"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"` // spacing of scheduling ticks
	PollWorkers  int           `yaml:"poll_workers"`  // max concurrent provider polls
}

// UnmarshalYAML accepts tick_interval as a duration string ("3s", "500ms").
func (q *QueueConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TickInterval string `yaml:"tick_interval"`
		PollWorkers  int    `yaml:"poll_workers"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TickInterval != "" {
		d, err := time.ParseDuration(raw.TickInterval)
		if err != nil {
			return fmt.Errorf("queue.tick_interval: %w", err)
		}
		q.TickInterval = d
	}
	q.PollWorkers = raw.PollWorkers
	return nil
}

type DownloadConfig struct {
	Dir string `yaml:"dir"`
}

type NotifyConfig struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Redis    RedisConfig    `yaml:"redis"`
	Queue    QueueConfig    `yaml:"queue"`
	Download DownloadConfig `yaml:"download"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8788
	}
	if cfg.Queue.TickInterval <= 0 {
		cfg.Queue.TickInterval = 3 * time.Second
	}
	if cfg.Queue.PollWorkers <= 0 {
		cfg.Queue.PollWorkers = 8
	}
	if cfg.Download.Dir == "" {
		cfg.Download.Dir = "downloads"
	}

	// Minimal validation
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Web.AdminKey == "" {
		return nil, errors.New("web.admin_key is required")
	}
	if cfg.Web.JWTSecret == "" {
		// Sessions stay usable on a single node without extra config.
		cfg.Web.JWTSecret = cfg.Web.AdminKey
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
