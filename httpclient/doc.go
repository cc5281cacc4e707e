// Package httpclient is the JSON client the social provider uses to reach
// its auth backend.
//
// A Client carries the backend's base URL, the deployment headers, an
// optional TLS block and a cookie jar that holds the backend session.
// Failures come back as AppErrors: 401/403 is UNAUTHORIZED, 5xx is
// EXTERNAL_SERVICE_ERROR, a dropped connection is CONNECTION_FAILED. The
// connector's resilience policy plugs in through Config.Breaker and
// Config.Retry.
//
//	c, err := httpclient.New(httpclient.Config{
//	    Service: "social-auth",
//	    BaseURL: "https://auth.example.com",
//	    Cookies: true,
//	    Breaker: resilience.NewBreaker("social", policy.Breaker),
//	})
//	s, err := httpclient.Get[sessionResponse](ctx, c, "/v1/session")
package httpclient
