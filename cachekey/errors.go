package cachekey

import "errors"

var (
	// ErrEmptyEntityType is returned when a RequestContext has no entity type.
	ErrEmptyEntityType = errors.New("cachekey: entity type is empty")

	// ErrKeyMalformed is returned when a well-formed key is expected but
	// the input does not match the generator's own key grammar.
	ErrKeyMalformed = errors.New("cachekey: key is malformed")
)
