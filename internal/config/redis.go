package config

// Redis backs three optional features: distributed rate limiting, response
// caching of catalogue reads and the per-table reservation lock.  When the
// server is unreachable at startup NewRedisClient returns nil and every
// feature degrades to a pass-through.

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings read from REDIS_* variables.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
	PoolSize int
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (or REDIS_ADDR),
// REDIS_PASSWORD, REDIS_DB, REDIS_TLS and REDIS_POOL_SIZE.
func LoadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	tlsEnv := os.Getenv("REDIS_TLS")
	return RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
		TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
		PoolSize: envInt("REDIS_POOL_SIZE", 10),
	}
}

// NewRedisClient connects using cfg and pings with a short timeout.  It
// returns nil when the server cannot be reached.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		PoolSize:  cfg.PoolSize,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// LockConfig controls the Redis lock taken around reservation creation.
type LockConfig struct {
	Enabled bool
	TTL     time.Duration
	Wait    time.Duration
	Prefix  string
}

func LoadLockConfig() LockConfig {
	return LockConfig{
		Enabled: envBool("LOCK_ENABLED", true),
		TTL:     envDur("LOCK_TTL", 5*time.Second),
		Wait:    envDur("LOCK_WAIT", 2*time.Second),
		Prefix:  getenv("LOCK_PREFIX", "restaurant:lock"),
	}
}
