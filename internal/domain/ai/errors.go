package ai

import "errors"

// ErrRateLimited indicates the AI gateway returned HTTP 429.
var ErrRateLimited = errors.New("ai rate limit exceeded")

// ErrQuotaExceeded indicates the AI gateway returned HTTP 402.
var ErrQuotaExceeded = errors.New("ai usage limit reached")

// ErrUpstream indicates any other non-success response from the gateway.
var ErrUpstream = errors.New("ai upstream error")

// ErrUpstreamFormat indicates the model reply could not be parsed into
// the expected shape.
var ErrUpstreamFormat = errors.New("invalid response format from ai")

// ErrNotConfigured indicates the gateway API key is absent from the
// environment.
var ErrNotConfigured = errors.New("ai gateway is not configured")
