package statsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// ErrFetchFailed is returned when a call kept failing with transient errors until retries ran out.
// It only aborts the window or item being fetched.
var ErrFetchFailed = errors.New("fetch failed")

// ErrMalformedPayload is returned when a 2xx body does not carry the expected result set.
var ErrMalformedPayload = errors.New("malformed payload")

// errTransport marks failures below HTTP: dropped connections, resets, truncated bodies.
var errTransport = errors.New("transport failure")

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status=%d body=%s", e.Code, e.Body)
}

// IsClientError reports a 4xx answer other than 429: the request is wrong or there is nothing to serve.
func IsClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}

// IsRetryable is the transient-failure predicate fed to the retry policy.
// Anything that went wrong on the wire is transient unless our own context ended.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, errTransport) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func abbreviate(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
