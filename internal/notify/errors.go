package notify

import (
	"fmt"
	"time"
)

// ThrottleError — бекенд CRM попросил притормозить (429 + Retry-After).
// Ретраер использует подсказанную задержку вместо экспоненциального бэкоффа.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error {
	return e.Cause
}
