package notification

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest marks malformed creation requests. Never retried.
var ErrInvalidRequest = errors.New("invalid notification request")

// ErrForbidden marks role-gated actions attempted without the required role.
var ErrForbidden = errors.New("caller role not permitted")

// RateLimitedError is returned when an action exceeds its rate ceiling. It
// always carries a retry-after hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is a rate-limit denial.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
