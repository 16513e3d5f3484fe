package filestore

import "time"

// DefaultCleanupInterval is how often the background sweep removes
// entries past their stored expiration.
const DefaultCleanupInterval = 5 * time.Minute

// DefaultCompressionThreshold is the byte size above which a value is
// gzip-compressed before being written to disk.
const DefaultCompressionThreshold = 8 * 1024

// Config configures a Store.
type Config struct {
	// Root is the directory entries are written under. It and its 256
	// shard subdirectories are created with permission 0o755.
	Root string

	// CompressionThreshold is the byte size above which a value is
	// gzip-compressed. Zero uses DefaultCompressionThreshold; a
	// negative value disables compression entirely.
	CompressionThreshold int

	// MaxBytes is a soft ceiling on total on-disk payload size. Once
	// exceeded, the next write triggers an immediate cleanup sweep
	// rather than waiting for the next scheduled tick.
	MaxBytes int64

	// CleanupInterval is how often the background sweep runs. A
	// negative value disables the background goroutine (tests call
	// Cleanup directly instead).
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = DefaultCompressionThreshold
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}
