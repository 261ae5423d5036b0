package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// LockTTL bounds how long a crashed holder can keep a game locked
	LockTTL time.Duration

	// TTL settings for different entity types
	GameTTL        time.Duration
	SessionTTL     time.Duration
	IdempotencyTTL time.Duration

	// ExpirationWarningLead is how long before the game expires the warning fires
	ExpirationWarningLead time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                   "redis://localhost:6379",
		PoolSize:              10,
		MinIdleConns:          2,
		LockTTL:               5 * time.Second,
		GameTTL:               24 * time.Hour,
		SessionTTL:            24 * time.Hour,
		IdempotencyTTL:        30 * time.Second,
		ExpirationWarningLead: 10 * time.Minute,
	}
}

// warningTTL is the TTL of the expiration warning marker
func (c Config) warningTTL() time.Duration {
	if c.ExpirationWarningLead >= c.GameTTL {
		return 0
	}
	return c.GameTTL - c.ExpirationWarningLead
}
