package core

import "errors"

// Sentinel errors classifying upstream failures. Providers wrap these with
// %w so the orchestrator and the worker supervisor can branch on errors.Is
// without depending on a concrete client.
var (
	// ErrTimeout marks an upstream request that exceeded its deadline.
	// Non-fatal: the session keeps polling at the normal interval.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrConnectivity marks an unreachable upstream. Fatal for the session.
	ErrConnectivity = errors.New("upstream unreachable")

	// ErrRateLimited marks an upstream rate-limit signal. The poll timer is
	// rearmed at a longer interval.
	ErrRateLimited = errors.New("upstream rate limit exceeded")

	// ErrMalformed marks an upstream response that could not be parsed.
	ErrMalformed = errors.New("malformed upstream response")
)

// Classify resolves err to the sentinel it wraps, or nil when it wraps none.
func Classify(err error) error {
	for _, sentinel := range []error{ErrTimeout, ErrConnectivity, ErrRateLimited, ErrMalformed} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
