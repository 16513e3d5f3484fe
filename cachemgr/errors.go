package cachemgr

import "errors"

// Sentinel errors for manager-level failures. Store-adjacent failures
// (ConnectivityError, SerializationError, CapacityError in spec terms)
// are propagated as-is from the store package (store.ErrUnreachable,
// store.ErrSerialization, store.ErrCapacityExceeded) rather than
// re-wrapped, so callers can errors.Is against one taxonomy.
var (
	// ErrUnknownStorageKind is returned when Config names a storage kind
	// other than memory, remote-kv, or file.
	ErrUnknownStorageKind = errors.New("cachemgr: unknown storage kind")

	// ErrMissingRemoteKVConfig is returned when a remote-kv storage kind
	// is selected without connection details.
	ErrMissingRemoteKVConfig = errors.New("cachemgr: remote-kv storage kind requires RemoteKV config")

	// ErrMissingFileStoreRoot is returned when a file storage kind is
	// selected without a root directory.
	ErrMissingFileStoreRoot = errors.New("cachemgr: file storage kind requires a root directory")

	// ErrEntryTooLarge is returned by Set when a value exceeds the
	// entity's configured MaxEntrySize.
	ErrEntryTooLarge = errors.New("cachemgr: entry exceeds entity max size")

	// ErrEmptyValue is returned by Set when the fetcher/caller produced
	// an empty value for an entity configured not to cache empties.
	ErrEmptyValue = errors.New("cachemgr: entity is configured not to cache empty values")

	// ErrStampedeTimeout is returned to a caller that waited past
	// Config.StampedeTimeout on an in-flight peer's fetch.
	ErrStampedeTimeout = errors.New("cachemgr: stampede wait timed out")

	// ErrNotInitialized is returned by operations that require
	// Initialize to have run first.
	ErrNotInitialized = errors.New("cachemgr: manager not initialized")

	// ErrAlreadyShutdown is returned by operations issued after Shutdown.
	ErrAlreadyShutdown = errors.New("cachemgr: manager already shut down")
)
