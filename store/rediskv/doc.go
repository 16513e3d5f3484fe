// Package rediskv implements store.Store against a remote key-value
// backend via github.com/redis/go-redis/v9.
//
// Grounded on the zerodha-fastcache goredis store's pipelined HMSet/PExpire
// write path and Del/DelGroup batch-delete shape, adapted from a
// fastcache.Item blob to a store.Entry JSON envelope with a native Redis
// TTL instead of a grouped hashmap.
//
// Entry keys are `<prefix><user-key>`; tag membership lives in Redis sets
// at `<prefix>tag:<tagName>`, expiring one hour past the longest entry
// TTL that references them. When Config.AtomicScripts is enabled, SET+
// tag-fan-out runs through a Lua script for atomicity; otherwise it falls
// back to a pipelined command batch. DELETE-by-tags always uses a
// pipelined batch and tolerates a key appearing in a tag set very briefly
// after the key itself is deleted, per the source behavior this replaces.
package rediskv
