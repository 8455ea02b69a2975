package farm

import "errors"

var (
	ErrConflict            = errors.New("account_exists")
	ErrNotFound            = errors.New("account_not_found")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrNotAuthenticated    = errors.New("not_authenticated")
	ErrNoActiveChallenge   = errors.New("no_active_challenge")
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
)
