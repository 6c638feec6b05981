package shared

import (
	"fmt"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
)

var (
	// ErrMissingScope occurs when a request reaches a handler without a resolved branch.
	ErrMissingScope = fmt.Errorf("%w: branch scope missing", httpx.ErrUnauthorized)
	// ErrInvalidToken occurs when the bearer token cannot be verified.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", httpx.ErrUnauthorized)
)
