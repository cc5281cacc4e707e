package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSConfig lists the browser origins allowed to call the connector API.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	// MaxAge is how long, in seconds, browsers may cache a preflight answer.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
}

// CORS answers preflight requests and tags responses for allowed origins.
// Without any allowed origin the handler is returned untouched.
func CORS(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil || len(cfg.AllowedOrigins) == 0 {
			return next
		}
		return cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   cfg.AllowedMethods,
			AllowedHeaders:   cfg.AllowedHeaders,
			ExposedHeaders:   []string{HeaderRequestID},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           cfg.MaxAge,
		}).Handler(next)
	}
}
