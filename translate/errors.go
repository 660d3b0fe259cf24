package translate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuth reports missing or rejected credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrConnectivity reports an unreachable endpoint.
	ErrConnectivity = errors.New("provider unreachable")
	// ErrNoModels reports a successful discovery that found nothing usable.
	ErrNoModels = errors.New("no models available")
)

// ProviderError is a failure reported by the upstream API.
type ProviderError struct {
	Provider string
	// Status is the HTTP status code, 0 when the failure was not an HTTP one.
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap maps 401/403 responses onto ErrAuth.
func (e *ProviderError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return ErrAuth
	}
	return nil
}

// Overloaded reports whether the error signals rate limiting or overload.
func (e *ProviderError) Overloaded() bool {
	if e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable {
		return true
	}
	return mentionsOverload(e.Message)
}

// MalformedResponseError reports model output that could not be parsed as
// JSON even after repair.
type MalformedResponseError struct {
	// Raw is the (truncated) text returned by the model.
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v: %s", e.Err, e.Raw)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying after a short wait:
// provider overload, HTTP 429/503, or any error whose message mentions
// overload or 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Overloaded()
	}
	return mentionsOverload(err.Error())
}

func mentionsOverload(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "429")
}
