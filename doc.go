// Package pdsession provides a session-oriented client for the PagerDuty
// REST API v2 with built-in reliability and entity-wrapping conveniences:
//
//   - Automatic retry with multiplicative cooldown + stagger jitter for
//     network errors and rate limiting (HTTP 429)
//   - A per-status retry policy table for everything else
//   - Canonical path classification against the documented API path catalog
//   - Transparent wrapping/unwrapping of request and response entity envelopes
//   - Unified iteration over both classic (offset) and cursor-based pagination
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - One logical request in flight at a time per call; retries block the
//     caller rather than spawning goroutines
//   - Extensibility via a pluggable HTTP client, logger and metrics collector
//
// Typical usage:
//
//	client, err := pdsession.New(apiKey,
//	    pdsession.WithDefaultFrom("admin@example.com"),
//	    pdsession.WithRetryPolicy(pdsession.RetryPolicy{404: 5}),
//	)
//	user, err := client.RGet(ctx, "/users/PABC123", nil)
//
//	for incident, err := range client.IterAll(ctx, "incidents", nil) {
//	    // ...
//	}
//
// Authentication failures (401) and unsupported methods fail immediately;
// rate limiting is retried indefinitely with cooldown unless the retry policy
// says otherwise. The library avoids opinionated logging: provide a Logger
// (e.g. via WithDebugLogging) for insight without noise.
package pdsession
