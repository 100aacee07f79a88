package polymarket

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/resilience"
)

var errMismatchedArrays = errors.New("outcome and price arrays differ in length")

// DecodeError marks a well-formed HTTP response whose body could not be
// normalized. It is deliberately not retryable: the upstream will keep
// sending the same payload.
type DecodeError struct {
	Field string
	Raw   string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field %q from %q: %v", e.Field, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// checkHTTPStatus maps non-2xx status codes to classifiable errors. Rate
// limits and auth failures additionally match the domain sentinels so
// handlers can report them precisely.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	httpErr := &resilience.HTTPError{StatusCode: statusCode, Body: string(body)}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, httpErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, httpErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, httpErr)
	default:
		return httpErr
	}
}
