package mock

import "errors"

// Mock package errors.
var (
	// ErrNoEngine is returned when dialing a location with no installed engine.
	ErrNoEngine = errors.New("no engine installed at location")

	// ErrEngineUnavailable is a ready-made dial failure for tests.
	ErrEngineUnavailable = errors.New("engine failed to start")
)
