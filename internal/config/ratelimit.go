package config

import "time"

// RateLimitConfig configures the Redis token bucket.  The auth bucket is a
// second, smaller bucket applied to login/register/reset so password
// guessing is throttled harder than browsing.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	AuthCapacity   int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		AuthCapacity:   envInt("RATE_LIMIT_AUTH_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "restaurant:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return def.normalize()
}

// normalize clamps values so the Lua script never divides by zero or keeps
// keys shorter than a few refill intervals.
func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.AuthCapacity < 1 {
		c.AuthCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// ForAuth returns a copy of c using the auth bucket size and a separate key
// namespace.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
	out := c
	out.Capacity = c.AuthCapacity
	out.Prefix = c.Prefix + ":auth"
	return out
}
