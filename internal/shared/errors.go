package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Upstream errors
	ErrUpstreamAuth          = fmt.Errorf("upstream authentication failed")
	ErrUpstreamUnavailable   = fmt.Errorf("upstream unavailable")
	ErrMalformedUpstreamData = fmt.Errorf("malformed upstream data")

	// Library errors
	ErrNotFound       = fmt.Errorf("not found")
	ErrDuplicateEntry = fmt.Errorf("duplicate entry")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
