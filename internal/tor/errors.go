package tor

import "errors"

// Proxy errors.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrNotRunning is returned when a dialer is requested from an embedded
	// Tor daemon that has not been started.
	ErrNotRunning = errors.New("embedded Tor daemon is not running")
)
