// Package resilience holds the per-connector guards used between a
// connector and its backend.
//
// Every connector carries a Policy, configured under
// connectors.<name>.resilience:
//
//   - Retry redials a wallet host or re-sends an idempotent backend call
//     with exponential backoff. Non-retryable AppErrors stop it at once.
//   - Breaker fails fast while an auth backend keeps timing out or
//     returning 5xx. A rejected login never trips it.
//   - Bulkhead caps the activations of one connector that may be in
//     flight over HTTP.
//
// KeyedLimiter is the odd one out: it rate limits HTTP clients of the
// daemon, not connectors.
//
//	p := resilience.DefaultPolicy()
//	br := resilience.NewBreaker("social", p.Breaker)
//	err := br.Do(func() error { return client.login(ctx) })
package resilience
