package github

import (
	"errors"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// apiError wraps err in a driven.APIError, lifting the HTTP status out of
// go-github's error types.
func apiError(op string, err error) error {
	status := 0

	var ghErr *gh.ErrorResponse
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &ghErr) && ghErr.Response != nil:
		status = ghErr.Response.StatusCode
	case errors.As(err, &rateErr):
		status = http.StatusForbidden
	case errors.As(err, &abuseErr):
		status = http.StatusForbidden
	}

	return &driven.APIError{Op: op, StatusCode: status, Err: err}
}
