package httputil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Transport-level failure taxonomy. Parse-level failures (DataInvalid,
// MalformedPayload) live with the provider parsers in internal/provider.
var (
	// ErrTimeout means the per-attempt deadline elapsed before a response
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork means the request could not complete (DNS, refused, reset)
	ErrNetwork = errors.New("network error")
)

// HTTPError is a non-2xx response from the provider
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// classifyErr maps an http.Client error into the taxonomy
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// IsRetryable reports whether an error is worth another attempt against
// the same provider. Only transport failures qualify: a well-formed
// error payload will not change on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}
