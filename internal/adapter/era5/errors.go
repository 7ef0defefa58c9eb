package era5

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ProviderError is a non-2xx or malformed-request response from the wind
// provider. StatusCode is zero when the request never reached the provider.
type ProviderError struct {
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("wind provider: %s", e.Reason)
	}
	return fmt.Sprintf("wind provider returned %d: %s", e.StatusCode, e.Reason)
}

// IsRetryable reports whether a fetch failure is worth retrying. Transport
// errors, timeouts, 429 and 5xx are transient; any other provider status is
// terminal for the cell. A canceled context is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.StatusCode == 0 {
			return false // request was never sent, retrying cannot help
		}
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
