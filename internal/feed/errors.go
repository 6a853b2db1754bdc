package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrAuthentication indicates the provider rejected our credentials
	ErrAuthentication = errors.New("remote authentication failed")

	// ErrNotFound indicates the item does not exist or is not visible to us
	ErrNotFound = errors.New("remote item not found")

	// ErrTransient indicates a network failure or a retryable provider response
	ErrTransient = errors.New("transient remote error")
)

// rateLimitReasons are 403 reasons Drive uses for throttling
var rateLimitReasons = map[string]struct{}{
	"rateLimitExceeded":        {},
	"userRateLimitExceeded":    {},
	"sharingRateLimitExceeded": {},
}

// classify wraps a provider error with the matching sentinel so callers can use errors.Is
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %v", op, ErrAuthentication, err)
		case apiErr.Code == http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if _, ok := rateLimitReasons[item.Reason]; ok {
					return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
				}
			}
			return fmt.Errorf("%s: %w: %v", op, ErrAuthentication, err)
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
