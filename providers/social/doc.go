// Package social is the social-login wallet provider. It talks to an auth
// backend over HTTP: the backend runs the OAuth dance for the preferred auth
// type (google, twitter, ...) and answers with a signed ID token naming the
// user's wallet address.
//
// Backend contract, relative to base_url:
//
//	GET  /v1/status   -> {"chain_id": 137}
//	POST /v1/login    {"project_id", "preferred_auth_type"} -> {"id_token"}
//	GET  /v1/session  (cookie or bearer id_token) -> {"id_token"} or 401
//	POST /v1/chain    {"chain_id"} -> {"chain_id"}
//	POST /v1/logout
//
// The backend keeps its own session in a cookie; the ID token is kept in a
// provider.SessionStore so an eager connection can restore it. A restored
// token is only trusted after /v1/session accepts it.
package social
