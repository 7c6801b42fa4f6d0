package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/docker/docker/errdefs"
)

// HTTPError represents a non-2xx response from a source host.
type HTTPError struct {
	Status     string
	Headers    http.Header
	RequestURL *url.URL
	StatusCode int
}

// Allow HTTPError to satisfy error interface.
func (err *HTTPError) Error() string {
	status := err.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", err.StatusCode, http.StatusText(err.StatusCode))
	}
	return fmt.Sprintf("GET %s: %s", err.RequestURL, strings.ToLower(status))
}

// HandleHTTPError converts a failed response into a classified error.
func HandleHTTPError(resp *http.Response) error {
	httpError := &HTTPError{
		Status:     resp.Status,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}
	if resp.Request != nil {
		httpError.RequestURL = resp.Request.URL
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errdefs.NotFound(httpError)
	case resp.StatusCode == http.StatusUnauthorized:
		return errdefs.Unauthorized(httpError)
	case resp.StatusCode == http.StatusForbidden:
		return errdefs.Forbidden(httpError)
	case resp.StatusCode >= 500:
		return errdefs.Unavailable(httpError)
	default:
		return errdefs.Unknown(httpError)
	}
}
