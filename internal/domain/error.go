package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidExecContext    = errors.New("invalid executor context")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrInternalInconsistency = errors.New("store state violates an invariant")
)
