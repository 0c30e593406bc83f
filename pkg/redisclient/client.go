package redisclient

import (
	"github.com/redis/go-redis/v9"

	"projecttracker/pkg/config"
)

// New builds a redis client from config. The client is injected into
// components that need it rather than kept as a package global.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
