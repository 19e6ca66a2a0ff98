package health

import "errors"

var (
	ErrCheckFailed     = errors.New("health: check failed")
	ErrCheckTimeout    = errors.New("health: check timeout")
	ErrCheckerNotFound = errors.New("health: checker not found")
	ErrNoCheckers      = errors.New("health: no checkers registered")
	// ErrNotPingable is returned by NewStorageChecker for a backend without
	// a Ping method.
	ErrNotPingable = errors.New("health: backend does not support ping")
)
