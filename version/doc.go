// Package version describes the connectord build.
//
// The version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/authconnect/version.Version=1.0.0" ./cmd/connectord
//
// Unset values fall back to the VCS stamps in runtime/debug build info.
// Providers send UserAgent(kind) to their backends.
package version
