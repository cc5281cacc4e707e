// Package config loads service configuration for connectord.
//
// Values come from a config.yml found next to the command (cmd/<service>/),
// a config/ directory or the working directory, then .env files, then the
// process environment. Environment keys are matched against the sections
// the file already has, so SERVER_PORT overrides server.port and
// CONNECTORS_SOCIAL_KIND overrides connectors.social.kind. A CONNECTORD_
// prefix scopes a variable to the daemon and wins over the bare name.
//
// # Usage
//
//	cfg, err := config.Load[registry.Config]("connectord")
//
// Load applies defaults and validates when the target type provides
// ApplyDefaults and Validate methods.
package config
