package rediskv

import "github.com/redis/go-redis/v9"

// Named Lua scripts giving the backend atomicity guarantees the plain
// pipelined command batches cannot. Each has fixed semantics regardless
// of caller; when the backend does not support scripting (or
// Config.AtomicScripts is false) the store falls back to the pipelined
// equivalent and tolerates brief non-atomicity of tag maintenance.

// setWithTagFanoutScript atomically stores the entry value with a PX
// TTL and adds the user key to every tag set, refreshing each set's TTL.
//
// KEYS[1]    = entry key
// KEYS[2..]  = tag set keys
// ARGV[1]    = entry value
// ARGV[2]    = entry TTL in milliseconds
// ARGV[3]    = tag set TTL in milliseconds
// ARGV[4]    = user key (member added to each tag set)
var setWithTagFanoutScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
for i = 2, #KEYS do
  redis.call('SADD', KEYS[i], ARGV[4])
  redis.call('PEXPIRE', KEYS[i], ARGV[3])
end
return 1
`)

// getScript fetches the raw entry value. Kept as a named script (rather
// than a bare GET) so callers have one fixed entry point regardless of
// whether atomic GET+TTL-check semantics are later added.
//
// KEYS[1] = entry key
var getScript = redis.NewScript(`
return redis.call('GET', KEYS[1])
`)
