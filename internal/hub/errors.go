package hub

import "errors"

// Dispatcher lifecycle errors.
var (
	ErrHubAlreadyRunning = errors.New("dispatcher is already running")
	ErrHubNotRunning     = errors.New("dispatcher is not running")
)
