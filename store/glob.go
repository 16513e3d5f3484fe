package store

import "path"

// MatchGlob reports whether key matches a `*`/`?`-style glob pattern.
// Cache keys never contain '/', so path.Match's treatment of '/' as a
// separator never affects these patterns.
func MatchGlob(pattern, key string) bool {
	matched, err := path.Match(pattern, key)
	if err != nil {
		return false
	}
	return matched
}
