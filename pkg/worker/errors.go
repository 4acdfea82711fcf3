package worker

import "errors"

// Sentinel errors for worker pool manager operations.
var (
	// ErrPoolExists indicates CreatePool was called twice with the same name.
	ErrPoolExists = errors.New("worker pool already exists")

	// ErrPoolNotFound indicates an operation referenced an unknown pool name.
	ErrPoolNotFound = errors.New("worker pool not found")

	// ErrNilHandler indicates a nil handler function was provided to CreatePool.
	ErrNilHandler = errors.New("handler function cannot be nil")

	// ErrManagerDestroyed indicates an operation was attempted after
	// DestroyWorkerPools was called.
	ErrManagerDestroyed = errors.New("worker pool manager destroyed")

	// ErrStopTimeout indicates a pool didn't drain within the timeout.
	ErrStopTimeout = errors.New("timeout waiting for worker pool to drain")
)
