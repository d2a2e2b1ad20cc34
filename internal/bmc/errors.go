package bmc

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds returned by Session. Test with errors.Is; one error may match
// more than one kind (a failed login request is both ErrAuthentication and
// ErrTransport).
var (
	ErrTransport           = errors.New("transport failure")
	ErrAuthentication      = errors.New("authentication failed")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrAssetDownload       = errors.New("asset download failed")
	ErrLaunch              = errors.New("viewer launch failed")
	ErrAction              = errors.New("power action failed")

	// ErrNotAuthenticated is returned when an authorized request is attempted
	// before Establish succeeded. It indicates a caller bug.
	ErrNotAuthenticated = errors.New("session not established")
	// ErrAssetsNotReady is returned by LaunchViewer before EnsureAssetsCached.
	ErrAssetsNotReady = errors.New("assets not cached")
)

// StatusError reports a response with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes every StatusError match ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// isNotFound reports whether err carries a 404 status.
func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
