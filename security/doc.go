// Package security holds the TLS settings shared by connectord's outbound
// transports: the auth backend HTTP client and the wallet bridge websocket.
//
//	cfg := security.TLSConfig{CAFile: "/etc/connectord/ca.pem"}
//	tlsConfig, err := cfg.Build() // nil when nothing is configured
package security
