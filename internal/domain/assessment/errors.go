package assessment

import "errors"

var (
	// ErrConfigurationMissing indicates the AI credential is not configured.
	ErrConfigurationMissing = errors.New("ai credential not configured")

	// ErrUpstreamUnavailable covers non-2xx responses, timeouts and transport failures.
	ErrUpstreamUnavailable = errors.New("ai upstream unavailable")

	// ErrMalformedResponse means the upstream answered but no usable JSON could be read.
	ErrMalformedResponse = errors.New("malformed ai response")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)
