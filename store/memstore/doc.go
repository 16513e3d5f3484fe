// Package memstore implements store.Store as a bounded, in-process LRU
// cache.
//
// Grounded on the teacher's cache.MemoryCache (sync.RWMutex-guarded map,
// lazy-expiry Get), generalized with an insertion-ordered list for LRU
// eviction, byte/entry bounds, and a periodic cleanup sweep the teacher's
// simple version never needed.
//
// On a GET hit the entry moves to the front of the list (most recently
// used). On an overflowing SET, entries are evicted from the back until
// both entry count and byte usage are at 80% of their configured bounds.
// A background goroutine sweeps expired entries on a fixed interval;
// Close stops it.
package memstore
