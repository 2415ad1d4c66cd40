package rate

import (
	"errors"
	"fmt"
	"time"
)

// LimitError reports an exhausted budget together with the retry-after hint
// surfaced to the client.
type LimitError struct {
	RetryAfter time.Duration
}

func (e LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// RetryAfterSec rounds the hint up to whole seconds for the wire.
func (e LimitError) RetryAfterSec() int64 {
	sec := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func AsLimitError(err error) (LimitError, bool) {
	var le LimitError
	if errors.As(err, &le) {
		return le, true
	}
	return LimitError{}, false
}
