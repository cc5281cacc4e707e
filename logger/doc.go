// Package logger is the daemon's structured logging on zerolog.
//
// Records carry the connector they concern, and a connector can log at a
// different level from the rest of the daemon:
//
//	logging:
//	  level: info
//	  format: json
//	  connectors:
//	    sdkwallet: debug
//
//	log := logger.GetGlobalLogger().WithConnector("sdkwallet")
//	log.Debug("Relay message", logger.Fields(logger.FieldEvent, "accountsChanged"))
package logger
