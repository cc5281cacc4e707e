package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authconnect/errors"
)

// ClaimsKey is the gin context key holding validated token claims.
const ClaimsKey = "auth_claims"

// AuthConfig configures bearer token authentication for the control API.
type AuthConfig struct {
	// Secret is the HMAC key for HS256 tokens. Empty disables auth.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// Enabled reports whether a secret was configured.
func (c AuthConfig) Enabled() bool { return c.Secret != "" }

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (jwt.MapClaims, error)

// HMACValidator validates HS256 tokens signed with secret. Expiry is always
// checked and iss is checked when issuer is non-empty.
func HMACValidator(secret []byte, issuer string) TokenValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(raw string) (jwt.MapClaims, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			return nil, err
		}
		return claims, nil
	}
}

// Auth requires a valid bearer token on every request outside SkipPaths and
// stores its claims under ClaimsKey.
func Auth(cfg AuthConfig, validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			Abort(c, errors.Unauthorized("Bearer token required."))
			return
		}

		claims, err := validate(token)
		if err != nil {
			Abort(c, errors.InvalidToken(err))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
