package ttlmanager

import "errors"

var (
	// ErrEmptyEntityType is returned when a Context has no entity type.
	ErrEmptyEntityType = errors.New("ttlmanager: entity type is empty")

	// ErrInvalidEntityConfig is returned when RegisterEntity receives a
	// configuration with min > default or default > max.
	ErrInvalidEntityConfig = errors.New("ttlmanager: entity config has min > default or default > max TTL")
)
