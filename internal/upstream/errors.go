package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoConnections means the account follows nobody yet. The cycle is skipped
// and retried later.
var ErrNoConnections = errors.New("upstream account has no connections")

// AuthError is an unrecoverable failure of the login protocol. Payload holds
// the raw upstream response for diagnostics and is never logged. Err is the
// transport or HTTP failure behind it, if any.
type AuthError struct {
	Reason  string
	Status  int
	Payload []byte
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream authentication failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream authentication failed: %s (status %d)", e.Reason, e.Status)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-zero API status or an HTTP error response.
// HTTPStatus is zero when the transport call itself succeeded.
type StatusError struct {
	Endpoint   string
	Status     int
	HTTPStatus int
}

func (e *StatusError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("upstream %s: http status %d", e.Endpoint, e.HTTPStatus)
	}
	return fmt.Sprintf("upstream %s: api status %d", e.Endpoint, e.Status)
}

// IsUnauthorized reports whether err means the session was rejected.
func IsUnauthorized(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.HTTPStatus == http.StatusUnauthorized
}
