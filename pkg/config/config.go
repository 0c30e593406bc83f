package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClickUpConfig holds credentials for the external task source.
type ClickUpConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// SyncConfig controls the daily sync run: where "today" is evaluated,
// when the scheduler fires, and how wide the reconciliation fan-out is.
type SyncConfig struct {
	Timezone  string `yaml:"timezone"`
	Hour      int    `yaml:"hour"`
	Minute    int    `yaml:"minute"`
	Workers   int    `yaml:"workers"`
	BatchSize int    `yaml:"batch_size"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	ClickUp ClickUpConfig `yaml:"clickup"`
	Sync    SyncConfig    `yaml:"sync"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "projecttracker"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		ClickUp: ClickUpConfig{
			BaseURL: "https://api.clickup.com/api/v2",
		},
		Sync: SyncConfig{
			Timezone:  "Asia/Jakarta",
			Hour:      17,
			Minute:    0,
			Workers:   10,
			BatchSize: 25,
		},
	}
}

// Load reads config.yaml (path overridable via CONFIG_PATH) and applies
// environment variable overrides on top. A missing file is not fatal so
// containers can run on env vars alone.
func Load() *Config {
	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			log.Fatalf("failed to decode %s: %v", path, err)
		}
	}

	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DB.Name = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("CLICKUP_BASE_URL"); v != "" {
		cfg.ClickUp.BaseURL = v
	}
	if v := os.Getenv("CLICKUP_TOKEN"); v != "" {
		cfg.ClickUp.Token = v
	}

	if v := os.Getenv("SYNC_TZ"); v != "" {
		cfg.Sync.Timezone = v
	}
	if v := os.Getenv("SYNC_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Hour = h
		}
	}
	if v := os.Getenv("SYNC_MINUTE"); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Minute = m
		}
	}
	if v := os.Getenv("SYNC_WORKERS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			cfg.Sync.Workers = w
		}
	}
	if v := os.Getenv("SYNC_BATCH_SIZE"); v != "" {
		if b, err := strconv.Atoi(v); err == nil && b > 0 {
			cfg.Sync.BatchSize = b
		}
	}
}
