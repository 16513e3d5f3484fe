// Package store defines the capability set every cache backend
// implements: GET, SET, DELETE, DELETE_MANY, DELETE_BY_PATTERN,
// DELETE_BY_TAGS, EXISTS, CLEAR, KEYS, SIZE, CLEANUP, HEALTH, and CLOSE.
//
// A [Store] never surfaces an internal failure as a hit: [Get] returns a
// [GetResult] whose Status distinguishes a hit, a miss, and an error. A
// GET of an expired entry is treated as a miss and the entry is deleted
// lazily. Implementations live in subpackages:
//
//   - memstore: bounded, LRU-evicted, in-process map.
//   - rediskv: a remote key-value backend with pipelined batch
//     operations and server-side tag sets.
//   - filestore: one file per entry under a sharded directory tree.
//
// store itself also hosts the glob-pattern and tag-index helpers shared
// by those implementations.
package store
