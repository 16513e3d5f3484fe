package rediskv

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnConfig describes how to reach the Redis backend. Credential is
// resolved by the caller (cachemgr resolves secretref: values via the
// secret package before constructing this).
type ConnConfig struct {
	Host           string
	Port           int
	Credential     string
	Database       int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 2 * time.Second
	}
	return c
}

// Dial builds a *redis.Client from a ConnConfig.
func Dial(cfg ConnConfig) *redis.Client {
	cfg = cfg.withDefaults()
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Credential,
		DB:           cfg.Database,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.CommandTimeout,
		WriteTimeout: cfg.CommandTimeout,
	})
}

// Config configures a Store given an already-constructed client.
type Config struct {
	// Prefix is prepended to every entry key and used to derive tag-set
	// keys (`<prefix>tag:<tagName>`).
	Prefix string

	// AtomicScripts enables Lua-script atomicity for SET+tag-fanout. When
	// false, that operation uses a pipelined command batch and tolerates
	// brief tag/entry inconsistency. DELETE-by-tags always uses a
	// pipelined batch.
	AtomicScripts bool

	// TagSetExtraTTL is added to an entry's TTL when (re)computing the
	// expiry of the tag sets it belongs to.
	TagSetExtraTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.TagSetExtraTTL == 0 {
		c.TagSetExtraTTL = time.Hour
	}
	return c
}
