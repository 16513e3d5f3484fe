// Package filestore implements store.Store as one file per entry under
// a sharded directory tree: `<root>/<hh>/<sha256-hex>.cache`, where
// `<hh>` is the first byte of the key's hash rendered as two hex
// digits (256 subdirectories for distribution).
//
// Writes are atomic via write-to-temp-then-rename. Values over a
// configurable byte threshold are gzip-compressed before being
// written. An in-memory key index and store.TagIndex are rebuilt on
// startup by walking the directory tree and parsing each file;
// corrupt files are deleted rather than surfaced as errors.
//
// Unlike the source behavior this replaces — which recovers a key from
// its hashed path only when the in-memory index happens to still hold
// it, and falls back to returning the hash itself otherwise — each
// payload envelope carries its own original key, so Keys/scan recovery
// never degrades to a hash.
package filestore
